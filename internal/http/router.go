package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	JWTSecret      string
	ServiceName    string
	Logger         *slog.Logger
}

type Handlers struct {
	Catalog  *CatalogHandler
	Checkout *CheckoutHandler
	Session  *SessionHandler
	Orders   *OrdersHandler
	Health   *HealthHandler
}

// NewRouter wires every route. Requests without an Origin header are
// accepted, others must be on the allow-list.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader, RequestIDHeader},
		ExposedHeaders:   []string{SessionHeader, RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(AuthMiddleware(cfg.JWTSecret))

	r.Get("/health", h.Health.Health)
	r.Get("/test-cors", TestCORS)

	r.Get("/categories", h.Catalog.ListCategories)
	r.Get("/categories/{id}", h.Catalog.CategoryProducts)
	r.Get("/products", h.Catalog.ListProducts)
	r.Get("/products/{id}", h.Catalog.GetProduct)
	r.Get("/kitchen", h.Catalog.ListKitchen)

	r.Post("/checkout", h.Checkout.Checkout)
	r.Post("/razorpay/verify", h.Checkout.Verify)

	r.Route("/session", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Get("/", h.Session.GetState)
		r.Post("/user", h.Session.LoadUser)

		r.Post("/cart", h.Session.AddToCart)
		r.Delete("/cart", h.Session.ResetCart)
		r.Post("/cart/{key}/decrease", h.Session.DecreaseQuantity)
		r.Delete("/cart/{key}", h.Session.RemoveFromCart)

		r.Post("/favorites", h.Session.AddToFavorite)
		r.Delete("/favorites/{id}", h.Session.RemoveFromFavorite)

		r.Post("/compare", h.Session.AddToCompare)
		r.Delete("/compare", h.Session.ClearCompare)
		r.Delete("/compare/{id}", h.Session.RemoveFromCompare)
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(RequireAuth).Get("/", h.Orders.ListOrders)
		r.With(RequireAuth).Get("/{id}", h.Orders.GetOrder)
		r.With(RequireAdmin).Patch("/{id}/status", h.Orders.UpdateStatus)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
