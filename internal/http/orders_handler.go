package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/snapeat/internal/orders/domain"
	"github.com/fjod/snapeat/internal/orders/repository"
	"github.com/fjod/snapeat/pkg/validation"
)

type OrderService interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status" validate:"notblank"`
}

// GET /orders
// Admins pass ?all=true to see every user's orders.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	claims := getClaims(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var (
		orders []*domain.Order
		err    error
	)
	if claims.IsAdmin() && r.URL.Query().Get("all") == "true" {
		orders, err = h.orders.ListAllOrders(ctx)
	} else {
		orders, err = h.orders.ListOrders(ctx, claims.UserID)
	}
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /orders/{id}
// Another user's order is reported as not found.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	claims := getClaims(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if order.UserID != claims.UserID && !claims.IsAdmin() {
		handleDomainError(w, repository.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// PATCH /orders/{id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_status", "status is required")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			respondError(w, http.StatusConflict, "status_changed", "order was updated concurrently, retry")
			return
		}
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
