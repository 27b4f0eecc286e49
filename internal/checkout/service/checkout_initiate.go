package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	catalogsvc "github.com/fjod/snapeat/internal/catalog/service"
	d "github.com/fjod/snapeat/internal/checkout/domain"
	r "github.com/fjod/snapeat/internal/checkout/repository"
	"github.com/fjod/snapeat/internal/payment/razorpay"
)

// Initiate prices the cart and opens a checkout session. COD orders are
// confirmed immediately; prepaid orders get a gateway order and stay PENDING
// until the payment is verified.
func (s *CheckoutServiceImpl) Initiate(ctx context.Context, req d.OrderRequest) (*d.CheckoutResult, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	totals := d.ComputeTotals(items, s.pricing)
	if req.ClientAmount != 0 && req.ClientAmount != totals.MinorUnits() {
		s.logger.WarnContext(ctx, "client amount differs from computed total",
			slog.Int64("client_amount", req.ClientAmount),
			slog.Int64("computed_amount", totals.MinorUnits()))
	}

	now := s.now()
	snapshot := d.CartSnapshot{
		Items:           items,
		ShippingAddress: *req.ShippingAddress,
		Contact:         req.Contact,
		Totals:          totals,
		PaymentMethod:   d.PaymentMethodUPI,
		SessionID:       req.SessionID,
		CapturedAt:      now,
	}

	if req.COD {
		return s.placeCOD(ctx, snapshot)
	}
	return s.placePrepaid(ctx, snapshot)
}

// priceItems looks every line up in the catalog. Unknown products or
// variations, quantities below one and unsellable prices are ErrInvalidItem.
func (s *CheckoutServiceImpl) priceItems(ctx context.Context, lines []d.LineRequest) ([]d.SnapshotItem, error) {
	items := make([]d.SnapshotItem, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity %d for product %d", ErrInvalidItem, l.Quantity, l.ProductID)
		}

		p, err := s.catalog.GetProduct(ctx, l.ProductID)
		if errors.Is(err, catalogsvc.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: unknown product %d", ErrInvalidItem, l.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", l.ProductID, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}

		p, err = p.WithVariation(l.VariationID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidItem, err)
		}
		if !sellable(p) {
			return nil, fmt.Errorf("%w: product %d has no price", ErrInvalidItem, l.ProductID)
		}
		items = append(items, d.NewSnapshotItem(p, l.Quantity))
	}
	return items, nil
}

func sellable(p catalog.Product) bool {
	return p.UnitPrice() > 0 && p.DiscountedPrice >= 0
}

func (s *CheckoutServiceImpl) placeCOD(ctx context.Context, snapshot d.CartSnapshot) (*d.CheckoutResult, error) {
	snapshot.PaymentMethod = d.PaymentMethodCOD
	checkoutID := s.newID()
	reference := fmt.Sprintf("COD_%d", snapshot.CapturedAt.UnixMilli())

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	event := d.NewConfirmedEvent(checkoutID, "", d.OrderStatusPendingApproval, snapshot, snapshot.CapturedAt)
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	session := &r.CheckoutSession{
		ID:           checkoutID,
		Receipt:      reference,
		UserID:       snapshot.Contact.UserID,
		COD:          true,
		CartSnapshot: snapshotJSON,
		TotalAmount:  snapshot.Totals.Total,
		Currency:     snapshot.Totals.Currency,
	}
	if err := s.repo.CreateCODSession(ctx, session, payload); err != nil {
		return nil, fmt.Errorf("failed to store cod checkout: %w", err)
	}

	s.logger.InfoContext(ctx, "cod order placed",
		slog.String("checkout_id", checkoutID),
		slog.String("reference", reference))

	return &d.CheckoutResult{
		CheckoutID: checkoutID,
		Order: d.GatewayOrder{
			ID:       reference,
			Amount:   snapshot.Totals.MinorUnits(),
			Currency: snapshot.Totals.Currency,
			Receipt:  reference,
			Status:   d.OrderStatusPendingApproval,
		},
		Totals: snapshot.Totals,
		COD:    true,
		Status: d.OrderStatusPendingApproval,
	}, nil
}

func (s *CheckoutServiceImpl) placePrepaid(ctx context.Context, snapshot d.CartSnapshot) (*d.CheckoutResult, error) {
	addressJSON, err := json.Marshal(snapshot.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	orderReq := razorpay.OrderRequest{
		Amount:   snapshot.Totals.MinorUnits(),
		Currency: snapshot.Totals.Currency,
		Receipt:  fmt.Sprintf("receipt_%d", snapshot.CapturedAt.UnixMilli()),
		Notes: map[string]string{
			"email":           snapshot.Contact.Email,
			"userId":          snapshot.Contact.UserID,
			"userName":        snapshot.Contact.UserName,
			"phoneNumber":     snapshot.Contact.PhoneNumber,
			"shippingAddress": string(addressJSON),
		},
	}

	order, err := s.gateway.CreateOrder(ctx, orderReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	gatewayOrderID := order.ID
	session := &r.CheckoutSession{
		ID:             s.newID(),
		Receipt:        orderReq.Receipt,
		GatewayOrderID: &gatewayOrderID,
		UserID:         snapshot.Contact.UserID,
		CartSnapshot:   snapshotJSON,
		TotalAmount:    snapshot.Totals.Total,
		Currency:       snapshot.Totals.Currency,
	}
	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}

	s.logger.InfoContext(ctx, "gateway order created",
		slog.String("checkout_id", session.ID),
		slog.String("order_id", order.ID),
		slog.Int64("amount", order.Amount))

	return &d.CheckoutResult{
		CheckoutID: session.ID,
		Order:      order,
		Totals:     snapshot.Totals,
		Status:     string(d.SessionStatusPending),
		Options:    s.checkoutOptions(order, snapshot),
	}, nil
}

func (s *CheckoutServiceImpl) checkoutOptions(order d.GatewayOrder, snapshot d.CartSnapshot) *d.CheckoutOptions {
	name := snapshot.ShippingAddress.FullName
	if name == "" {
		name = snapshot.Contact.UserName
	}
	contact := snapshot.ShippingAddress.PhoneNumber
	if contact == "" {
		contact = snapshot.Contact.PhoneNumber
	}

	return &d.CheckoutOptions{
		Key:         s.gateway.KeyID(),
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        storeName,
		Description: paymentDescription,
		OrderID:     order.ID,
		Prefill: d.Prefill{
			Name:    name,
			Email:   snapshot.Contact.Email,
			Contact: contact,
			Method:  string(d.PaymentMethodUPI),
		},
		Theme:  d.Theme{Color: themeColor},
		Config: d.UPIOnlyConfig(),
	}
}
