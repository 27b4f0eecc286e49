package service

import "errors"

var (
	ErrEmptyCart     = errors.New("cart is empty, nothing to checkout")
	ErrInvalidItem   = errors.New("invalid cart item")
	ErrGateway       = errors.New("payment gateway error")
	ErrSessionClosed = errors.New("checkout session is no longer pending")
)
