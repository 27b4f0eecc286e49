package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/snapeat/internal/orders/domain"
	"github.com/fjod/snapeat/internal/orders/repository"
	"github.com/google/uuid"
)

const adminListLimit = 200

var ErrInvalidOrderID = errors.New("invalid order id")

type OrderService struct {
	repo   repository.OrderRepository
	logger *slog.Logger
}

func NewOrderService(repo repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{repo: repo, logger: logger}
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidOrderID, id)
	}
	return uid, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOrderByID(ctx, uid)
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx, adminListLimit)
}

// UpdateStatus applies an explicit status change if the transition table
// allows it from the order's current status.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrderByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is already %s", domain.ErrIllegalTransition, order.Status)
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, order.Status, next)
	}

	if err := s.repo.UpdateStatus(ctx, uid, order.Status, next); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("from", string(order.Status)),
		slog.String("to", string(next)))

	order.Status = next
	return order, nil
}

func (s *OrderService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
