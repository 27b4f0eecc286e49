package domain

import (
	"time"

	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

type SnapshotItem struct {
	ProductID   int64           `json:"product_id"`
	VariationID string          `json:"variation_id,omitempty"`
	ProductName string          `json:"product_name"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// NewSnapshotItem prices qty units of p, which already carries its selected
// variation.
func NewSnapshotItem(p catalog.Product, qty int) SnapshotItem {
	unit := decimal.NewFromFloat(p.UnitPrice())
	it := SnapshotItem{
		ProductID:   p.ID,
		VariationID: p.SelectedVariation,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   unit,
		Subtotal:    unit.Mul(decimal.NewFromInt(int64(qty))),
	}
	if len(p.Images) > 0 {
		it.Image = p.Images[0]
	}
	return it
}

type Contact struct {
	Email       string `json:"email"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	PhoneNumber string `json:"phoneNumber"`
}

// CartSnapshot is the cart as it was when checkout started.
type CartSnapshot struct {
	Items           []SnapshotItem  `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Contact         Contact         `json:"contact"`
	Totals          Totals          `json:"totals"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	SessionID       string          `json:"session_id,omitempty"`
	CapturedAt      time.Time       `json:"captured_at"`
}

type PaymentMethod string

const (
	PaymentMethodUPI PaymentMethod = "upi"
	PaymentMethodCOD PaymentMethod = "cod"
)
