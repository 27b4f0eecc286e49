package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/snapeat/internal/store/service"
	"github.com/fjod/snapeat/pkg/logger"
)

const (
	Topic   = "checkout-events"
	GroupID = "storefront-cart"

	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
	commitTimeout     = 5 * time.Second
)

var errUnreadableEvent = errors.New("unreadable checkout event")

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type SessionProvider interface {
	Get(ctx context.Context, sessionID string) (*service.Store, error)
}

// confirmedCheckout is the part of a checkout confirmation this consumer reads.
type confirmedCheckout struct {
	CheckoutID string `json:"checkout_id"`
	SessionID  string `json:"session_id"`
}

// CartResetter empties the cart of the session a checkout came from once
// the checkout is confirmed.
type CartResetter struct {
	sessions   SessionProvider
	reader     MessageReader
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewCartResetter(sessions SessionProvider, logger *slog.Logger, brokers ...string) *CartResetter {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &CartResetter{sessions: sessions, reader: reader, logger: logger, retryDelay: initialRetryDelay}
}

func (c *CartResetter) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *CartResetter) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing kafka reader", slog.Any("error", err))
	}
}

func (c *CartResetter) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.logger.ErrorContext(ctx, "error fetching message", slog.Any("error", err))
		return
	}

	if err := c.handleWithRetry(ctx, m); err != nil {
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

// handleWithRetry retries session failures with backoff until ctx ends.
// Unreadable events are logged and reported as done.
func (c *CartResetter) handleWithRetry(ctx context.Context, m kafka.Message) error {
	delay := c.retryDelay
	if delay <= 0 {
		delay = initialRetryDelay
	}
	for {
		err := c.handle(ctx, m.Value)
		if err == nil {
			return nil
		}
		if errors.Is(err, errUnreadableEvent) {
			c.logger.ErrorContext(ctx, "skipping unreadable event",
				slog.String("key", string(m.Key)),
				slog.Any("error", err))
			return nil
		}

		c.logger.WarnContext(ctx, "failed to reset cart, retrying",
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

// handle ignores confirmations without a session, such as ones placed by
// API clients that never opened one.
func (c *CartResetter) handle(ctx context.Context, payload []byte) error {
	var event confirmedCheckout
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse event: %w", errUnreadableEvent, err)
	}
	if event.SessionID == "" {
		return nil
	}

	st, err := c.sessions.Get(ctx, event.SessionID)
	if err != nil {
		return fmt.Errorf("open session for checkout %s: %w", event.CheckoutID, err)
	}
	st.ResetCart(ctx)

	c.logger.InfoContext(ctx, "cart cleared after checkout",
		slog.String("checkout_id", event.CheckoutID),
		slog.String("session", logger.HashID(event.SessionID)))
	return nil
}
