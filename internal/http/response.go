package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	catalog "github.com/fjod/snapeat/internal/catalog/service"
	orders "github.com/fjod/snapeat/internal/orders/domain"
	ordersrepo "github.com/fjod/snapeat/internal/orders/repository"
	ordersvc "github.com/fjod/snapeat/internal/orders/service"
	store "github.com/fjod/snapeat/internal/store/domain"
	"github.com/fjod/snapeat/pkg/validation"
)

// maxBodySize matches the 10mb JSON limit the frontends were built against.
const maxBodySize = 10 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}

// validationDetails names the request fields that failed their checks.
func validationDetails(err error) string {
	fields := validation.Fields(err)
	if len(fields) == 0 {
		return err.Error()
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// handleDomainError maps the sentinel errors of the store, catalog and
// orders packages to a status and code.
func handleDomainError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, store.ErrInvalidCartKey):
		httpStatus, code = http.StatusBadRequest, "invalid_cart_key"
	case errors.Is(err, ordersvc.ErrInvalidOrderID):
		httpStatus, code = http.StatusBadRequest, "invalid_order_id"
	case errors.Is(err, orders.ErrUnknownStatus):
		httpStatus, code = http.StatusBadRequest, "invalid_status"
	case errors.Is(err, catalog.ErrProductNotFound):
		httpStatus, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, ordersrepo.ErrOrderNotFound):
		httpStatus, code = http.StatusNotFound, "order_not_found"
	case errors.Is(err, orders.ErrIllegalTransition):
		httpStatus, code = http.StatusConflict, "illegal_transition"
	case errors.Is(err, ordersrepo.ErrStatusChanged):
		httpStatus, code = http.StatusConflict, "status_changed"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
