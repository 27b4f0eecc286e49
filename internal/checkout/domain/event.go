package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypeCheckoutConfirmed = "CheckoutConfirmed"
	EventTopic                 = "checkout-events"
)

// Order statuses carried in confirmation events.
const (
	OrderStatusProcessing      = "Processing"
	OrderStatusPendingApproval = "Pending Approval"
)

// CheckoutConfirmedEvent is the outbox payload consumed to create an order.
type CheckoutConfirmedEvent struct {
	CheckoutID      string          `json:"checkout_id"`
	UserID          string          `json:"user_id"`
	PaymentID       string          `json:"payment_id"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	OrderStatus     string          `json:"order_status"`
	Items           []SnapshotItem  `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Contact         Contact         `json:"contact"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	SessionID       string          `json:"session_id,omitempty"`
	ConfirmedAt     time.Time       `json:"confirmed_at"`
}

func NewConfirmedEvent(checkoutID, paymentID, orderStatus string, snap CartSnapshot, at time.Time) CheckoutConfirmedEvent {
	return CheckoutConfirmedEvent{
		CheckoutID:      checkoutID,
		UserID:          snap.Contact.UserID,
		PaymentID:       paymentID,
		PaymentMethod:   snap.PaymentMethod,
		OrderStatus:     orderStatus,
		Items:           snap.Items,
		ShippingAddress: snap.ShippingAddress,
		Contact:         snap.Contact,
		Subtotal:        snap.Totals.Subtotal,
		ShippingCost:    snap.Totals.Shipping,
		TaxAmount:       snap.Totals.Tax,
		TotalAmount:     snap.Totals.Total,
		Currency:        snap.Totals.Currency,
		SessionID:       snap.SessionID,
		ConfirmedAt:     at,
	}
}
