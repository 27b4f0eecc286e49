// Package razorpay creates orders on the Razorpay orders API.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	d "github.com/fjod/snapeat/internal/checkout/domain"
	"github.com/fjod/snapeat/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultBaseURL = "https://api.razorpay.com"

var (
	ErrUnavailable = errors.New("payment gateway unavailable")
	ErrRejected    = errors.New("payment gateway rejected the request")
)

// OrderRequest is the body of POST /v1/orders. Amount is in minor units.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuitbreaker.Breaker[d.GatewayOrder]
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[d.GatewayOrder]("razorpay", circuitbreaker.Options{
			// 4xx answers mean the gateway is up.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrRejected)
			},
			Logger: logger,
		}),
	}
}

// KeyID is the public key handed to the payment sheet.
func (c *Client) KeyID() string {
	return c.cfg.KeyID
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (d.GatewayOrder, error) {
	order, err := c.breaker.Execute(func() (d.GatewayOrder, error) {
		return c.createOrder(ctx, req)
	})
	if circuitbreaker.IsOpen(err) {
		return d.GatewayOrder{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return order, err
}

func (c *Client) createOrder(ctx context.Context, req OrderRequest) (d.GatewayOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return d.GatewayOrder{}, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return d.GatewayOrder{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return d.GatewayOrder{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return d.GatewayOrder{}, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		msg := resp.Status
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
			msg = apiErr.Error.Description
		}
		if resp.StatusCode >= 500 {
			return d.GatewayOrder{}, fmt.Errorf("%w: %s", ErrUnavailable, msg)
		}
		return d.GatewayOrder{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	var order d.GatewayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return d.GatewayOrder{}, fmt.Errorf("%w: decode order: %w", ErrUnavailable, err)
	}
	if order.ID == "" {
		return d.GatewayOrder{}, fmt.Errorf("%w: order id missing in response", ErrUnavailable)
	}
	return order, nil
}
