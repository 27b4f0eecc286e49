package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/snapeat/internal/catalog/domain"
	catalogsvc "github.com/fjod/snapeat/internal/catalog/service"
)

// CategoryNameHeader carries the page title of a category listing, which
// keeps the body a bare array of products.
const CategoryNameHeader = "X-Category-Name"

type ProductDTO struct {
	domain.Product
	DetailPath string `json:"detailPath"`
}

type CategoryDTO struct {
	domain.Category
	DisplayName string `json:"displayName"`
}

type Catalog interface {
	ListCategories(ctx context.Context) []domain.Category
	GeneralProducts(ctx context.Context) []domain.Product
	KitchenProducts(ctx context.Context) []domain.Product
	ProductsForCategory(ctx context.Context, token string) []domain.Product
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
}

type CatalogHandler struct {
	catalog Catalog
	timeout time.Duration
}

func NewCatalogHandler(catalog Catalog, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

// GET /categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories := h.catalog.ListCategories(ctx)
	out := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryDTO{Category: c, DisplayName: domain.DisplayName(c.Base)})
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /categories/{id}
// An unknown token yields an empty array, never 404.
func (h *CatalogHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	token := chi.URLParam(r, "id")
	w.Header().Set(CategoryNameHeader, domain.DisplayName(token))
	respondJSON(w, http.StatusOK, toProductDTOs(h.catalog.ProductsForCategory(ctx, token)))
}

// GET /products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, toProductDTOs(h.catalog.GeneralProducts(ctx)))
}

// GET /kitchen
func (h *CatalogHandler) ListKitchen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, toProductDTOs(h.catalog.KitchenProducts(ctx)))
}

// GET /products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := parseProductID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(p))
}

func parseProductID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id must be a positive integer")
		return 0, false
	}
	return id, true
}

func toProductDTO(p domain.Product) ProductDTO {
	return ProductDTO{Product: p, DetailPath: catalogsvc.DetailPath(p)}
}

// toProductDTOs never returns nil so an empty listing encodes as [].
func toProductDTOs(products []domain.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}
