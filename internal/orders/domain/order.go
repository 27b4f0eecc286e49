package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrIllegalTransition = errors.New("illegal order status transition")
	ErrUnknownStatus     = errors.New("unknown order status")
)

type OrderStatus string

const (
	OrderStatusPendingApproval OrderStatus = "Pending Approval"
	OrderStatusApproved        OrderStatus = "Approved"
	OrderStatusRejected        OrderStatus = "Rejected"
	OrderStatusProcessing      OrderStatus = "Processing"
	OrderStatusShipped         OrderStatus = "Shipped"
	OrderStatusDelivered       OrderStatus = "Delivered"
	OrderStatusCompleted       OrderStatus = "Completed"
	OrderStatusCancelled       OrderStatus = "Cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingApproval: {OrderStatusApproved, OrderStatusRejected},
	OrderStatusApproved:        {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing:      {OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusShipped:         {OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusDelivered:       {OrderStatusCompleted},
	OrderStatusCompleted:       nil,
	OrderStatusCancelled:       nil,
	OrderStatusRejected:        nil,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ProductID   int64           `json:"product_id"`
	VariationID string          `json:"variation_id,omitempty"`
	ProductName string          `json:"product_name"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type ShippingAddress struct {
	FullName    string `json:"fullName"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	PhoneNumber string `json:"phoneNumber"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	CheckoutID      uuid.UUID       `json:"checkoutId"`
	UserID          string          `json:"userId"`
	PaymentID       string          `json:"paymentId,omitempty"`
	PaymentMethod   string          `json:"paymentMethod"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
