// Package payment verifies payment gateway callbacks.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrMissingFields     = errors.New("missing required parameters for payment verification")
	ErrSignatureMismatch = errors.New("payment verification failed - signature mismatch")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusRejected Status = "REJECTED"
)

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type Result struct {
	Status    Status
	OrderID   string
	PaymentID string
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func (v *Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the gateway signature in constant time. Any error leaves the
// result REJECTED.
func (v *Verifier) Verify(req VerifyRequest) (Result, error) {
	res := Result{Status: StatusRejected, OrderID: req.OrderID, PaymentID: req.PaymentID}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return res, ErrMissingFields
	}

	expected := v.Sign(req.OrderID, req.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return res, ErrSignatureMismatch
	}

	res.Status = StatusVerified
	return res, nil
}
