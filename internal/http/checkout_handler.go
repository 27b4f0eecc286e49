package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	d "github.com/fjod/snapeat/internal/checkout/domain"
	checkout "github.com/fjod/snapeat/internal/checkout/service"
	"github.com/fjod/snapeat/internal/payment"
	"github.com/fjod/snapeat/pkg/validation"
)

const paymentConfigError = "Payment configuration error. Please contact support."

type CheckoutHandler struct {
	service            checkout.CheckoutService
	paymentsConfigured bool
	timeout            time.Duration
	logger             *slog.Logger
}

func NewCheckoutHandler(service checkout.CheckoutService, paymentsConfigured bool, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:            service,
		paymentsConfigured: paymentsConfigured,
		timeout:            timeout,
		logger:             logger,
	}
}

// CheckoutRequestDTO accepts the storefront's cart lines as they are. Only
// the product id, selected variation and quantity are read from them.
type CheckoutRequestDTO struct {
	Items           []d.LineRequest    `json:"items" validate:"dive"`
	Email           string             `json:"email"`
	Amount          float64            `json:"amount"`
	ShippingAddress *d.ShippingAddress `json:"shippingAddress"`
	UserID          string             `json:"userId"`
	UserName        string             `json:"userName"`
	PhoneNumber     string             `json:"phoneNumber"`
	COD             bool               `json:"cod"`
}

type CheckoutResponseDTO struct {
	Message    string             `json:"message"`
	Success    bool               `json:"success"`
	CheckoutID string             `json:"checkoutId"`
	Order      d.GatewayOrder     `json:"order"`
	Checkout   *d.CheckoutOptions `json:"checkout,omitempty"`
	Totals     d.Totals           `json:"totals"`
	Status     string             `json:"status"`
	COD        bool               `json:"cod"`
}

type CheckoutErrorDTO struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
	Details string `json:"details,omitempty"`
}

type VerifyResponseDTO struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"paymentId,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// POST /checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, CheckoutErrorDTO{Error: "invalid JSON body"})
		return
	}
	if err := validation.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, CheckoutErrorDTO{
			Error:   "invalid checkout request",
			Details: validationDetails(err),
		})
		return
	}
	if !req.COD && !h.paymentsConfigured {
		h.logger.ErrorContext(ctx, "Razorpay keys not found in environment variables")
		respondJSON(w, http.StatusInternalServerError, CheckoutErrorDTO{Error: paymentConfigError})
		return
	}

	userID := req.UserID
	if claims := getClaims(r.Context()); claims != nil && userID == "" {
		userID = claims.UserID
	}

	result, err := h.service.Initiate(ctx, d.OrderRequest{
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		Contact: d.Contact{
			Email:       req.Email,
			UserID:      userID,
			UserName:    req.UserName,
			PhoneNumber: req.PhoneNumber,
		},
		COD:          req.COD,
		SessionID:    r.Header.Get(SessionHeader),
		ClientAmount: int64(math.Round(req.Amount)),
	})
	if err != nil {
		h.checkoutError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		Message:    "Order created successfully",
		Success:    true,
		CheckoutID: result.CheckoutID,
		Order:      result.Order,
		Checkout:   result.Options,
		Totals:     result.Totals,
		Status:     result.Status,
		COD:        result.COD,
	})
}

func (h *CheckoutHandler) checkoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, d.ErrMissingShippingAddress), errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidItem):
		respondJSON(w, http.StatusBadRequest, CheckoutErrorDTO{Error: err.Error()})
	case errors.Is(err, checkout.ErrGateway):
		h.logger.ErrorContext(ctx, "Razorpay API error", "error", err)
		respondJSON(w, http.StatusBadGateway, CheckoutErrorDTO{Error: "Razorpay API error: " + err.Error()})
	default:
		h.logger.ErrorContext(ctx, "order creation failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, CheckoutErrorDTO{
			Error:   err.Error(),
			Details: "Server error during order creation",
		})
	}
}

// POST /razorpay/verify
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req payment.VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, VerifyResponseDTO{Message: "invalid JSON body"})
		return
	}
	if !h.paymentsConfigured {
		h.logger.ErrorContext(ctx, "Razorpay keys not found in environment variables")
		respondJSON(w, http.StatusInternalServerError, CheckoutErrorDTO{Error: paymentConfigError})
		return
	}

	result, err := h.service.VerifyPayment(ctx, req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, VerifyResponseDTO{
			Success:   true,
			Message:   "Payment verified successfully",
			PaymentID: result.PaymentID,
			OrderID:   result.OrderID,
		})
	case errors.Is(err, payment.ErrMissingFields):
		respondJSON(w, http.StatusBadRequest, VerifyResponseDTO{Message: "Missing required parameters for payment verification"})
	case errors.Is(err, payment.ErrSignatureMismatch):
		respondJSON(w, http.StatusBadRequest, VerifyResponseDTO{Message: "Payment verification failed - signature mismatch"})
	case errors.Is(err, checkout.ErrSessionClosed):
		respondJSON(w, http.StatusConflict, VerifyResponseDTO{Message: "Checkout is no longer awaiting payment"})
	default:
		h.logger.ErrorContext(ctx, "payment verification failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, VerifyResponseDTO{
			Message: "Server error during payment verification",
			Error:   err.Error(),
		})
	}
}

// GET /test-cors
func TestCORS(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message":   "CORS is working",
		"origin":    r.Header.Get("Origin"),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
