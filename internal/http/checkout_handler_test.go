package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	d "github.com/fjod/snapeat/internal/checkout/domain"
	checkout "github.com/fjod/snapeat/internal/checkout/service"
	"github.com/fjod/snapeat/internal/payment"
)

func checkoutBody(cod bool) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{
			{"_id": 1, "name": "Baby Lotion", "regularPrice": 150, "discountedPrice": 120, "quantity": 2},
		},
		"email":       "asha@example.com",
		"amount":      29000,
		"userId":      "uid-1",
		"userName":    "Asha",
		"phoneNumber": "9999999999",
		"cod":         cod,
		"shippingAddress": map[string]string{
			"fullName": "Asha", "address": "1 Main St", "city": "Pune",
			"state": "MH", "postalCode": "411001", "phoneNumber": "9999999999",
		},
	}
}

func prepaidResult() *d.CheckoutResult {
	return &d.CheckoutResult{
		CheckoutID: "checkout-1",
		Order:      d.GatewayOrder{ID: "order_ABC", Amount: 29000, Currency: "INR", Receipt: "receipt_1"},
		Totals:     d.Totals{Total: decimal.NewFromInt(290), Currency: "INR"},
		Status:     "PENDING",
		Options:    &d.CheckoutOptions{Key: "rzp_test", Amount: 29000, Currency: "INR", OrderID: "order_ABC"},
	}
}

func TestCheckout_Prepaid(t *testing.T) {
	deps := newTestDeps()
	deps.checkout.result = prepaidResult()
	router := deps.router(t)

	rec := doRequest(t, router, "POST", "/checkout", checkoutBody(false), session("s-checkout"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[CheckoutResponseDTO](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Order created successfully", resp.Message)
	assert.Equal(t, "order_ABC", resp.Order.ID)
	require.NotNil(t, resp.Checkout)
	assert.Equal(t, "rzp_test", resp.Checkout.Key)

	sent := deps.checkout.lastRequest
	require.Len(t, sent.Items, 1)
	assert.Equal(t, d.LineRequest{ProductID: 1, Quantity: 2}, sent.Items[0])
	assert.Equal(t, int64(29000), sent.ClientAmount)
	assert.Equal(t, "uid-1", sent.Contact.UserID)
	assert.Equal(t, "s-checkout", sent.SessionID)
	require.NotNil(t, sent.ShippingAddress)
	assert.Equal(t, "Pune", sent.ShippingAddress.City)
}

func TestCheckout_UserIDFromToken(t *testing.T) {
	deps := newTestDeps()
	deps.checkout.result = prepaidResult()
	router := deps.router(t)

	body := checkoutBody(false)
	delete(body, "userId")
	rec := doRequest(t, router, "POST", "/checkout", body, bearer(t, "uid-token", "user"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uid-token", deps.checkout.lastRequest.Contact.UserID)
}

func TestCheckout_PaymentsNotConfigured(t *testing.T) {
	deps := newTestDeps()
	deps.payments = false
	deps.checkout.result = &d.CheckoutResult{CheckoutID: "c", COD: true, Status: "Pending Approval"}
	router := deps.router(t)

	rec := doRequest(t, router, "POST", "/checkout", checkoutBody(false), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Payment configuration error. Please contact support.","success":false}`, rec.Body.String())

	// cash on delivery needs no gateway keys
	rec = doRequest(t, router, "POST", "/checkout", checkoutBody(true), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CheckoutResponseDTO](t, rec)
	assert.True(t, resp.COD)
	assert.Nil(t, resp.Checkout)
	assert.Equal(t, "Pending Approval", resp.Status)
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"missing address", d.ErrMissingShippingAddress, http.StatusBadRequest},
		{"empty cart", checkout.ErrEmptyCart, http.StatusBadRequest},
		{"invalid item", fmt.Errorf("%w: unknown product 99", checkout.ErrInvalidItem), http.StatusBadRequest},
		{"gateway", fmt.Errorf("%w: %w", checkout.ErrGateway, errBoom), http.StatusBadGateway},
		{"other", errBoom, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			deps.checkout.err = tt.err
			router := deps.router(t)

			rec := doRequest(t, router, "POST", "/checkout", checkoutBody(false), nil)
			assert.Equal(t, tt.code, rec.Code)
			resp := decode[CheckoutErrorDTO](t, rec)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCheckout_ClientPricesAreNotForwarded(t *testing.T) {
	deps := newTestDeps()
	deps.checkout.result = prepaidResult()
	router := deps.router(t)

	body := checkoutBody(true)
	body["items"] = []map[string]interface{}{
		{"_id": 1, "regularPrice": -1000, "discountedPrice": -1000, "quantity": 1},
		{"_id": 4, "selectedVariation": "large", "discountedPrice": 0.01, "quantity": 1000},
	}
	rec := doRequest(t, router, "POST", "/checkout", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []d.LineRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 4, VariationID: "large", Quantity: 1000},
	}, deps.checkout.lastRequest.Items)
}

func TestCheckout_InvalidLinesRejectedBeforeService(t *testing.T) {
	tests := []struct {
		name  string
		item  map[string]interface{}
		field string
	}{
		{"zero quantity", map[string]interface{}{"_id": 1, "quantity": 0}, "items[0].quantity"},
		{"negative quantity", map[string]interface{}{"_id": 1, "quantity": -2}, "items[0].quantity"},
		{"missing id", map[string]interface{}{"name": "Tea", "quantity": 1}, "items[0]._id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			deps.checkout.result = prepaidResult()
			router := deps.router(t)

			body := checkoutBody(false)
			body["items"] = []map[string]interface{}{tt.item}
			rec := doRequest(t, router, "POST", "/checkout", body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decode[CheckoutErrorDTO](t, rec)
			assert.Equal(t, "invalid checkout request", resp.Error)
			assert.Contains(t, resp.Details, tt.field)
			assert.Nil(t, deps.checkout.lastRequest.Items, "service must not be called")
		})
	}
}

func TestCheckout_BlankAddressFieldRejected(t *testing.T) {
	deps := newTestDeps()
	router := deps.router(t)

	body := checkoutBody(true)
	body["shippingAddress"] = map[string]string{
		"fullName": "Asha", "address": " ", "city": "Pune",
		"state": "MH", "postalCode": "411001", "phoneNumber": "9999999999",
	}
	rec := doRequest(t, router, "POST", "/checkout", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[CheckoutErrorDTO](t, rec).Details, "shippingAddress.address")
}

func TestCheckout_InvalidJSON(t *testing.T) {
	router := newTestDeps().router(t)

	rec := doRequest(t, router, "POST", "/checkout", "not an object", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerify(t *testing.T) {
	body := map[string]string{
		"razorpay_order_id":   "order_ABC",
		"razorpay_payment_id": "pay_XYZ",
		"razorpay_signature":  "sig",
	}

	tests := []struct {
		name     string
		err      error
		code     int
		expected string
	}{
		{"verified", nil, http.StatusOK,
			`{"success":true,"message":"Payment verified successfully","paymentId":"pay_XYZ","orderId":"order_ABC"}`},
		{"missing fields", payment.ErrMissingFields, http.StatusBadRequest,
			`{"success":false,"message":"Missing required parameters for payment verification"}`},
		{"mismatch", payment.ErrSignatureMismatch, http.StatusBadRequest,
			`{"success":false,"message":"Payment verification failed - signature mismatch"}`},
		{"closed", checkout.ErrSessionClosed, http.StatusConflict,
			`{"success":false,"message":"Checkout is no longer awaiting payment"}`},
		{"server", errBoom, http.StatusInternalServerError,
			`{"success":false,"message":"Server error during payment verification","error":"boom"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			deps.checkout.verifyResult = payment.Result{Status: payment.StatusVerified, OrderID: "order_ABC", PaymentID: "pay_XYZ"}
			deps.checkout.verifyErr = tt.err
			router := deps.router(t)

			rec := doRequest(t, router, "POST", "/razorpay/verify", body, nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.expected, rec.Body.String())
			assert.Equal(t, "sig", deps.checkout.lastVerify.Signature)
		})
	}
}

func TestVerify_PaymentsNotConfigured(t *testing.T) {
	deps := newTestDeps()
	deps.payments = false
	router := deps.router(t)

	rec := doRequest(t, router, "POST", "/razorpay/verify", map[string]string{}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
