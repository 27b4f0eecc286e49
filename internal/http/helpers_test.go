package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	catalogsvc "github.com/fjod/snapeat/internal/catalog/service"
	d "github.com/fjod/snapeat/internal/checkout/domain"
	"github.com/fjod/snapeat/internal/health"
	orders "github.com/fjod/snapeat/internal/orders/domain"
	ordersrepo "github.com/fjod/snapeat/internal/orders/repository"
	ordersvc "github.com/fjod/snapeat/internal/orders/service"
	"github.com/fjod/snapeat/internal/payment"
	store "github.com/fjod/snapeat/internal/store/domain"
	storesvc "github.com/fjod/snapeat/internal/store/service"
	users "github.com/fjod/snapeat/internal/users/domain"
	"github.com/fjod/snapeat/pkg/logger"
)

const testSecret = "test-jwt-secret"

// --- catalog ---

type mockCatalog struct {
	products   []catalog.Product
	categories []catalog.Category
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: []catalog.Product{
			{ID: 1, Name: "Baby Lotion", Base: "babyCare", Category: "Baby Care", RegularPrice: 150, DiscountedPrice: 120, IsStock: true},
			{ID: 2, Name: "Green Tea", Base: "tea", Category: "Beverages", RegularPrice: 80, IsStock: true},
			{ID: 3, Name: "Paneer Tikka", Base: "kitchen", Category: "Kitchen & Food", RegularPrice: 200, DiscountedPrice: 180, IsStock: true},
			{ID: 4, Name: "Shampoo", Base: "hairCare", Category: "Hair Care", RegularPrice: 300, DiscountedPrice: 250, IsStock: true,
				Variations: []catalog.Variation{
					{ID: "small", Name: "200ml", RegularPrice: 300, DiscountedPrice: 250, IsStock: true},
					{ID: "large", Name: "500ml", RegularPrice: 600, DiscountedPrice: 500, IsStock: false},
				}},
		},
		categories: []catalog.Category{
			{ID: 1, Name: "Baby Care", Base: "babyCare"},
			{ID: 2, Name: "Beverages", Base: "beverages"},
		},
	}
}

func (m *mockCatalog) ListCategories(ctx context.Context) []catalog.Category {
	return m.categories
}

func (m *mockCatalog) GeneralProducts(ctx context.Context) []catalog.Product {
	return catalogsvc.ExcludeKitchen(m.products)
}

func (m *mockCatalog) KitchenProducts(ctx context.Context) []catalog.Product {
	return catalogsvc.OnlyKitchen(m.products)
}

func (m *mockCatalog) ProductsForCategory(ctx context.Context, token string) []catalog.Product {
	return catalogsvc.FilterByCategory(m.products, token)
}

func (m *mockCatalog) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalogsvc.ErrProductNotFound
}

// --- checkout ---

type mockCheckout struct {
	mu           sync.RWMutex
	result       *d.CheckoutResult
	err          error
	lastRequest  d.OrderRequest
	verifyResult payment.Result
	verifyErr    error
	lastVerify   payment.VerifyRequest
}

func (m *mockCheckout) Initiate(ctx context.Context, req d.OrderRequest) (*d.CheckoutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockCheckout) VerifyPayment(ctx context.Context, req payment.VerifyRequest) (payment.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastVerify = req
	return m.verifyResult, m.verifyErr
}

// --- orders ---

type mockOrders struct {
	mu        sync.RWMutex
	orders    map[string]*orders.Order
	updateErr error
}

func newMockOrders(list ...*orders.Order) *mockOrders {
	m := &mockOrders{orders: make(map[string]*orders.Order)}
	for _, o := range list {
		m.orders[o.ID.String()] = o
	}
	return m
}

func (m *mockOrders) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ordersvc.ErrInvalidOrderID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ordersrepo.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) ListOrders(ctx context.Context, userID string) ([]*orders.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*orders.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrders) ListAllOrders(ctx context.Context) ([]*orders.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*orders.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOrders) UpdateStatus(ctx context.Context, id, status string) (*orders.Order, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	o, err := m.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := orders.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, orders.ErrIllegalTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[id].Status = next
	o.Status = next
	return o, nil
}

// --- sessions ---

type memorySnapshots struct {
	mu    sync.RWMutex
	saved map[string]store.Snapshot
	err   error
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{saved: make(map[string]store.Snapshot)}
}

func (m *memorySnapshots) Save(ctx context.Context, sessionID string, snap store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[sessionID] = snap
	return nil
}

func (m *memorySnapshots) Load(ctx context.Context, sessionID string) (store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return store.Snapshot{}, m.err
	}
	if snap, ok := m.saved[sessionID]; ok {
		return snap, nil
	}
	return store.EmptySnapshot(), nil
}

type mockUsers struct {
	users map[string]*users.User
}

func (m *mockUsers) GetUser(ctx context.Context, uid string) (*users.User, error) {
	if u, ok := m.users[uid]; ok {
		return u, nil
	}
	return nil, users.ErrUserNotFound
}

// --- health ---

type stubHealth struct {
	report health.Report
}

func (s stubHealth) Check(ctx context.Context) health.Report {
	return s.report
}

// --- router ---

type testDeps struct {
	catalog   *mockCatalog
	checkout  *mockCheckout
	orders    *mockOrders
	snapshots *memorySnapshots
	users     *mockUsers
	health    stubHealth
	payments  bool
}

func newTestDeps() *testDeps {
	return &testDeps{
		catalog:   newMockCatalog(),
		checkout:  &mockCheckout{},
		orders:    newMockOrders(),
		snapshots: newMemorySnapshots(),
		users: &mockUsers{users: map[string]*users.User{
			"uid-1": {ID: "uid-1", Name: "Asha", Email: "asha@example.com", Role: users.RoleUser},
		}},
		health:   stubHealth{report: health.Report{Status: health.StatusOK, Checks: map[string]string{"postgres": health.StatusOK}}},
		payments: true,
	}
}

func (deps *testDeps) router(t *testing.T) http.Handler {
	t.Helper()
	log := logger.Nop()
	sessions := storesvc.NewSessions(deps.snapshots, deps.users, time.Minute, log)
	t.Cleanup(sessions.Close)

	timeout := 5 * time.Second
	return NewRouter(RouterConfig{
		AllowedOrigins: []string{"https://snapeat.vercel.app", "https://snapeat-admin.vercel.app", "http://localhost:3000"},
		RequestTimeout: timeout,
		JWTSecret:      testSecret,
		ServiceName:    "storefront-test",
		Logger:         log,
	}, Handlers{
		Catalog:  NewCatalogHandler(deps.catalog, timeout),
		Checkout: NewCheckoutHandler(deps.checkout, deps.payments, timeout, log),
		Session:  NewSessionHandler(sessions, deps.catalog, timeout, log),
		Orders:   NewOrdersHandler(deps.orders, timeout),
		Health:   NewHealthHandler(deps.health),
	})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID, role string) map[string]string {
	t.Helper()
	token, err := signToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

var errBoom = errors.New("boom")
