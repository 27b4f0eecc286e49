package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	"github.com/fjod/snapeat/internal/store/domain"
	"github.com/fjod/snapeat/internal/store/service"
	"github.com/fjod/snapeat/pkg/logger"
	"github.com/fjod/snapeat/pkg/validation"
)

type SessionProvider interface {
	Get(ctx context.Context, sessionID string) (*service.Store, error)
}

type SessionHandler struct {
	sessions SessionProvider
	catalog  Catalog
	timeout  time.Duration
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionProvider, catalog Catalog, timeout time.Duration, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger,
	}
}

// ProductRefDTO names a catalog product; prices always come from the catalog.
type ProductRefDTO struct {
	ProductID         int64  `json:"_id" validate:"gt=0"`
	SelectedVariation string `json:"selectedVariation,omitempty"`
}

type UserRequestDTO struct {
	UID string `json:"uid"`
}

func (h *SessionHandler) store(w http.ResponseWriter, r *http.Request) (*service.Store, bool) {
	sessionID := getSessionID(r.Context())
	st, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to open session",
			"session", logger.HashID(sessionID), "error", err)
		respondError(w, http.StatusServiceUnavailable, "session_unavailable", "session store unavailable")
		return nil, false
	}
	return st, true
}

// resolveProduct decodes a product reference, loads it from the catalog and
// applies the selected variation.
func (h *SessionHandler) resolveProduct(ctx context.Context, w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	var ref ProductRefDTO
	if err := decodeJSON(w, r, &ref); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return catalog.Product{}, false
	}
	if err := validation.Struct(ref); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", validationDetails(err))
		return catalog.Product{}, false
	}

	p, err := h.catalog.GetProduct(ctx, ref.ProductID)
	if err != nil {
		handleDomainError(w, err)
		return catalog.Product{}, false
	}
	if _, err := p.WithVariation(ref.SelectedVariation); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_variation", "unknown variation "+ref.SelectedVariation)
		return catalog.Product{}, false
	}
	p.SelectedVariation = ref.SelectedVariation
	return p, true
}

// GET /session
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, st.State())
}

// POST /session/user
func (h *SessionHandler) LoadUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UserRequestDTO
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	if req.UID == "" {
		if claims := getClaims(r.Context()); claims != nil {
			req.UID = claims.UserID
		}
	}

	st, ok := h.store(w, r)
	if !ok {
		return
	}
	st.GetUserInfo(ctx, req.UID)
	respondJSON(w, http.StatusOK, st.State())
}

// POST /session/cart
func (h *SessionHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := h.resolveProduct(ctx, w, r)
	if !ok {
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	st.AddToCart(ctx, p)
	respondJSON(w, http.StatusOK, st.State())
}

// POST /session/cart/{key}/decrease
func (h *SessionHandler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, (*service.Store).DecreaseQuantity)
}

// DELETE /session/cart/{key}
func (h *SessionHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, (*service.Store).RemoveFromCart)
}

func (h *SessionHandler) mutateLine(w http.ResponseWriter, r *http.Request, op func(*service.Store, context.Context, domain.CartKey) bool) {
	key, err := domain.ParseCartKey(chi.URLParam(r, "key"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	if !op(st, r.Context(), key) {
		respondError(w, http.StatusNotFound, "line_not_found", "no cart line for "+key.String())
		return
	}
	respondJSON(w, http.StatusOK, st.State())
}

// DELETE /session/cart
func (h *SessionHandler) ResetCart(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	st.ResetCart(r.Context())
	respondJSON(w, http.StatusOK, st.State())
}

// POST /session/favorites
func (h *SessionHandler) AddToFavorite(w http.ResponseWriter, r *http.Request) {
	h.addToList(w, r, (*service.Store).AddToFavorite)
}

// DELETE /session/favorites/{id}
func (h *SessionHandler) RemoveFromFavorite(w http.ResponseWriter, r *http.Request) {
	h.removeFromList(w, r, (*service.Store).RemoveFromFavorite)
}

// POST /session/compare
func (h *SessionHandler) AddToCompare(w http.ResponseWriter, r *http.Request) {
	h.addToList(w, r, (*service.Store).AddToCompare)
}

// DELETE /session/compare/{id}
func (h *SessionHandler) RemoveFromCompare(w http.ResponseWriter, r *http.Request) {
	h.removeFromList(w, r, (*service.Store).RemoveFromCompare)
}

// DELETE /session/compare
func (h *SessionHandler) ClearCompare(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	st.ClearCompare(r.Context())
	respondJSON(w, http.StatusOK, st.State())
}

// addToList treats a product already on the list as success.
func (h *SessionHandler) addToList(w http.ResponseWriter, r *http.Request, op func(*service.Store, context.Context, catalog.Product) bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := h.resolveProduct(ctx, w, r)
	if !ok {
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	op(st, ctx, p)
	respondJSON(w, http.StatusOK, st.State())
}

func (h *SessionHandler) removeFromList(w http.ResponseWriter, r *http.Request, op func(*service.Store, context.Context, int64) bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id must be a positive integer")
		return
	}
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	if !op(st, r.Context(), id) {
		respondError(w, http.StatusNotFound, "not_in_list", "product "+strconv.FormatInt(id, 10)+" is not on the list")
		return
	}
	respondJSON(w, http.StatusOK, st.State())
}
