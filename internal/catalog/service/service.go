package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/snapeat/internal/catalog/domain"
	"github.com/fjod/snapeat/internal/catalog/repository"
	"github.com/fjod/snapeat/internal/catalog/seed"
)

var ErrProductNotFound = errors.New("product not found")

// Service reads the catalog store and falls back to the embedded seed
// catalog when the store is empty, unreachable or not configured.
type Service struct {
	repo   repository.RepoInterface
	logger *slog.Logger
}

// NewService accepts a nil repo, in which case only seed data is served.
func NewService(repo repository.RepoInterface, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListProducts(ctx context.Context) []domain.Product {
	if s.repo != nil {
		products, err := s.repo.ListProducts(ctx)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "catalog read failed, serving seed products", "error", err)
		case len(products) == 0:
			s.logger.InfoContext(ctx, "catalog empty, serving seed products")
		default:
			return products
		}
	}
	return seed.Products()
}

// GeneralProducts are the listings outside the kitchen pages.
func (s *Service) GeneralProducts(ctx context.Context) []domain.Product {
	return ExcludeKitchen(s.ListProducts(ctx))
}

func (s *Service) KitchenProducts(ctx context.Context) []domain.Product {
	return OnlyKitchen(s.ListProducts(ctx))
}

func (s *Service) ProductsForCategory(ctx context.Context, token string) []domain.Product {
	return FilterByCategory(s.ListProducts(ctx), token)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if s.repo != nil {
		p, err := s.repo.GetProduct(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrProductNotFound) {
			s.logger.WarnContext(ctx, "catalog read failed, trying seed product", "product_id", id, "error", err)
		}
	}
	if p, ok := seed.Product(id); ok {
		return p, nil
	}
	return domain.Product{}, ErrProductNotFound
}

func (s *Service) ListCategories(ctx context.Context) []domain.Category {
	if s.repo != nil {
		categories, err := s.repo.ListCategories(ctx)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "catalog read failed, serving seed categories", "error", err)
		case len(categories) == 0:
			s.logger.InfoContext(ctx, "no categories stored, serving seed categories")
		default:
			return categories
		}
	}
	return seed.Categories()
}

// Ping reports catalog store health. A service without a store is healthy.
func (s *Service) Ping(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Ping(ctx)
}
