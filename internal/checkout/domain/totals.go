package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals are flat per order: shipping and tax do not depend on the items.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shippingCost"`
	Tax      decimal.Decimal `json:"taxAmount"`
	Total    decimal.Decimal `json:"totalAmount"`
	Currency string          `json:"currency"`
}

type Pricing struct {
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Currency string
}

func ComputeTotals(items []SnapshotItem, p Pricing) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
	}
	return Totals{
		Subtotal: subtotal,
		Shipping: p.Shipping,
		Tax:      p.Tax,
		Total:    subtotal.Add(p.Shipping).Add(p.Tax),
		Currency: p.Currency,
	}
}

// MinorUnits is the total in the smallest currency unit (paise for INR).
func (t Totals) MinorUnits() int64 {
	return t.Total.Mul(hundred).Round(0).IntPart()
}
