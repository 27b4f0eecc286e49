package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	d "github.com/fjod/snapeat/internal/checkout/domain"
	r "github.com/fjod/snapeat/internal/checkout/repository"
	"github.com/fjod/snapeat/internal/payment"
)

// VerifyPayment checks the gateway signature and settles the matching
// checkout session. The verification result is returned even when no
// session is known for the order.
func (s *CheckoutServiceImpl) VerifyPayment(ctx context.Context, req payment.VerifyRequest) (payment.Result, error) {
	res, verr := s.verifier.Verify(req)
	if errors.Is(verr, payment.ErrMissingFields) {
		return res, verr
	}

	session, err := s.repo.GetSessionByGatewayOrderID(ctx, req.OrderID)
	if errors.Is(err, r.ErrSessionNotFound) {
		s.logger.WarnContext(ctx, "no checkout session for verified order",
			slog.String("order_id", req.OrderID),
			slog.String("status", string(res.Status)))
		return res, verr
	}
	if err != nil {
		return res, fmt.Errorf("failed to load checkout session: %w", err)
	}

	if verr != nil {
		if session.Status == d.SessionStatusPending {
			if err := s.repo.RejectCheckoutSession(ctx, session.ID); err != nil && !errors.Is(err, r.ErrIllegalTransition) {
				return res, fmt.Errorf("failed to reject checkout session: %w", err)
			}
		}
		s.logger.WarnContext(ctx, "payment signature mismatch",
			slog.String("checkout_id", session.ID),
			slog.String("order_id", req.OrderID))
		return res, verr
	}

	switch session.Status {
	case d.SessionStatusVerified:
		return res, nil
	case d.SessionStatusPending:
	default:
		return res, fmt.Errorf("%w: %s", ErrSessionClosed, session.Status)
	}

	if err := s.complete(ctx, session, req.PaymentID); err != nil {
		return res, err
	}
	s.logger.InfoContext(ctx, "payment verified",
		slog.String("checkout_id", session.ID),
		slog.String("payment_id", req.PaymentID))
	return res, nil
}

func (s *CheckoutServiceImpl) complete(ctx context.Context, session *r.CheckoutSession, paymentID string) error {
	var snapshot d.CartSnapshot
	if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}

	event := d.NewConfirmedEvent(session.ID, paymentID, d.OrderStatusProcessing, snapshot, s.now())
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	err = s.repo.CompleteCheckoutSession(ctx, session.ID, paymentID, payload)
	if errors.Is(err, r.ErrIllegalTransition) {
		// lost a race with another verification of the same order
		current, gerr := s.repo.GetSessionByGatewayOrderID(ctx, *session.GatewayOrderID)
		if gerr == nil && current.Status == d.SessionStatusVerified {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrSessionClosed, err)
	}
	if err != nil {
		return fmt.Errorf("failed to complete checkout session: %w", err)
	}
	return nil
}
