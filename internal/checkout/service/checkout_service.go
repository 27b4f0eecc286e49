package service

import (
	"context"
	"log/slog"
	"time"

	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	d "github.com/fjod/snapeat/internal/checkout/domain"
	r "github.com/fjod/snapeat/internal/checkout/repository"
	"github.com/fjod/snapeat/internal/payment"
	"github.com/fjod/snapeat/internal/payment/razorpay"
	"github.com/google/uuid"
)

const (
	storeName          = "SnapEat"
	paymentDescription = "Food Order Payment"
	themeColor         = "#DC2626"
)

type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (d.GatewayOrder, error)
	KeyID() string
}

// ProductCatalog is where checkout reads prices from.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

type SignatureVerifier interface {
	Verify(req payment.VerifyRequest) (payment.Result, error)
}

type CheckoutService interface {
	Initiate(ctx context.Context, req d.OrderRequest) (*d.CheckoutResult, error)
	VerifyPayment(ctx context.Context, req payment.VerifyRequest) (payment.Result, error)
}

type CheckoutServiceImpl struct {
	repo     r.RepoInterface
	gateway  Gateway
	verifier SignatureVerifier
	catalog  ProductCatalog
	pricing  d.Pricing
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewCheckoutService(repo r.RepoInterface, gateway Gateway, verifier SignatureVerifier, catalog ProductCatalog, pricing d.Pricing, logger *slog.Logger) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		repo:     repo,
		gateway:  gateway,
		verifier: verifier,
		catalog:  catalog,
		pricing:  pricing,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}
