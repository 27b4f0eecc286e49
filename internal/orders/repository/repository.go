package repository

import (
	"context"
	"errors"

	"github.com/fjod/snapeat/internal/orders/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateCheckout = errors.New("order for this checkout already exists")
	ErrStatusChanged     = errors.New("order status changed concurrently")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context, limit int) ([]*domain.Order, error)
	// UpdateStatus moves the order to next only while it is still in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, next domain.OrderStatus) error
	Ping(ctx context.Context) error
	Close() error
}
