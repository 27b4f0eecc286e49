package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/snapeat/internal/orders/domain"
	"github.com/fjod/snapeat/internal/orders/repository"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	Topic   = "checkout-events"
	GroupID = "orders-service"

	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
	commitTimeout     = 5 * time.Second
)

// ErrMalformedEvent marks events that can never become an order. They are
// committed and skipped rather than retried.
var ErrMalformedEvent = errors.New("malformed checkout event")

// eventItem mirrors the item shape published in checkout confirmation events.
// Prices arrive as "unit_price".
type eventItem struct {
	ProductID   int64           `json:"product_id"`
	VariationID string          `json:"variation_id,omitempty"`
	ProductName string          `json:"product_name"`
	Image       string          `json:"image,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"unit_price"`
}

type CheckoutConfirmedEvent struct {
	CheckoutID      string                 `json:"checkout_id"`
	UserID          string                 `json:"user_id"`
	PaymentID       string                 `json:"payment_id"`
	PaymentMethod   string                 `json:"payment_method"`
	OrderStatus     string                 `json:"order_status"`
	Items           []eventItem            `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	ShippingCost    decimal.Decimal        `json:"shipping_cost"`
	TaxAmount       decimal.Decimal        `json:"tax_amount"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	Currency        string                 `json:"currency"`
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer commits an offset only once its event is stored as an order or
// skipped as malformed, so a failed insert is retried instead of lost.
type Consumer struct {
	repo       repository.OrderRepository
	reader     MessageReader
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewConsumer(repo repository.OrderRepository, logger *slog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{repo: repo, reader: reader, logger: logger, retryDelay: initialRetryDelay}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing kafka reader", slog.Any("error", err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.logger.ErrorContext(ctx, "error fetching message", slog.Any("error", err))
		return
	}

	if err := c.handleWithRetry(ctx, m); err != nil {
		// left uncommitted, the event is redelivered after a restart
		return
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := c.reader.CommitMessages(commitCtx, m); err != nil {
		c.logger.ErrorContext(ctx, "failed to commit offset",
			slog.Int64("offset", m.Offset),
			slog.Any("error", err))
	}
}

// handleWithRetry returns nil once the message may be committed and an error
// only when ctx ends first.
func (c *Consumer) handleWithRetry(ctx context.Context, m kafka.Message) error {
	delay := c.retryDelay
	if delay <= 0 {
		delay = initialRetryDelay
	}
	for {
		err := c.handle(ctx, m.Value)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrMalformedEvent) {
			c.logger.ErrorContext(ctx, "skipping malformed checkout event",
				slog.String("key", string(m.Key)),
				slog.Int64("offset", m.Offset),
				slog.Any("error", err))
			return nil
		}

		c.logger.WarnContext(ctx, "failed to handle checkout event, retrying",
			slog.String("key", string(m.Key)),
			slog.Duration("retry_in", delay),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// handle turns one confirmation event into an order. Redelivered events for
// a checkout that already has an order are skipped.
func (c *Consumer) handle(ctx context.Context, payload []byte) error {
	var event CheckoutConfirmedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse event: %w", ErrMalformedEvent, err)
	}

	order, err := orderFromEvent(event)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if err := c.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateCheckout) {
			c.logger.InfoContext(ctx, "order for checkout already exists, skipping",
				slog.String("checkout_id", event.CheckoutID))
			return nil
		}
		return fmt.Errorf("create order for checkout %s: %w", event.CheckoutID, err)
	}

	c.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.String("checkout_id", event.CheckoutID),
		slog.String("status", string(order.Status)))
	return nil
}

func orderFromEvent(event CheckoutConfirmedEvent) (*domain.Order, error) {
	checkoutID, err := uuid.Parse(event.CheckoutID)
	if err != nil {
		return nil, fmt.Errorf("invalid checkout_id %q: %w", event.CheckoutID, err)
	}

	status := domain.OrderStatusProcessing
	if event.PaymentMethod == "cod" {
		status = domain.OrderStatusPendingApproval
	}
	if event.OrderStatus != "" {
		if status, err = domain.ParseOrderStatus(event.OrderStatus); err != nil {
			return nil, err
		}
	}

	currency := event.Currency
	if currency == "" {
		currency = "INR"
	}

	items := make([]domain.OrderItem, len(event.Items))
	for i, item := range event.Items {
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			ProductName: item.ProductName,
			Image:       item.Image,
			Quantity:    item.Quantity,
			Price:       item.Price,
		}
	}

	return &domain.Order{
		ID:              uuid.New(),
		CheckoutID:      checkoutID,
		UserID:          event.UserID,
		PaymentID:       event.PaymentID,
		PaymentMethod:   event.PaymentMethod,
		Items:           items,
		ShippingAddress: event.ShippingAddress,
		Subtotal:        event.Subtotal,
		ShippingCost:    event.ShippingCost,
		TaxAmount:       event.TaxAmount,
		TotalAmount:     event.TotalAmount,
		Currency:        currency,
		Status:          status,
	}, nil
}
