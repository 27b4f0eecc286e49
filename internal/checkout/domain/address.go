package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/snapeat/pkg/validation"
)

var ErrMissingShippingAddress = errors.New("shipping address is required")

type ShippingAddress struct {
	FullName    string `json:"fullName" validate:"notblank"`
	Address     string `json:"address" validate:"notblank"`
	City        string `json:"city" validate:"notblank"`
	State       string `json:"state" validate:"notblank"`
	PostalCode  string `json:"postalCode" validate:"notblank"`
	PhoneNumber string `json:"phoneNumber" validate:"notblank"`
}

// Validate rejects a nil address or one with blank fields.
func (a *ShippingAddress) Validate() error {
	if a == nil {
		return ErrMissingShippingAddress
	}
	if err := validation.Struct(a); err != nil {
		return fmt.Errorf("%w: missing %s", ErrMissingShippingAddress, strings.Join(validation.Fields(err), ", "))
	}
	return nil
}
