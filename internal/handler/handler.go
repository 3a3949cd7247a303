// Package handler binds the order engine to HTTP with chi.
//
// Customer identity arrives in the X-User-ID header, set by the upstream
// authentication layer. Operator routes under /api/admin require an API key
// in the api_key header.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/choco-orders/internal/domain/auth"
	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
	"github.com/xenking/choco-orders/internal/domain/order"
	"github.com/xenking/choco-orders/internal/domain/product"
)

// OrderService is the engine surface used by the handlers.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context, userID *int64) ([]order.Order, error)
	Balance(ctx context.Context, userID int64) (int64, error)
	PointsHistory(ctx context.Context, userID int64, limit int) ([]loyalty.Entry, error)
}

// Authenticator validates operator API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, key, scope string) (*auth.APIKeyInfo, error)
}

var _ OrderService = (*order.Service)(nil)

// Config holds non-dependency handler settings.
type Config struct {
	// GuestCheckout allows POST /api/orders without X-User-ID.
	GuestCheckout bool
	// HistoryLimit caps GET /api/points/history.
	HistoryLimit int
}

// Handler serves the JSON API.
type Handler struct {
	orders   OrderService
	offers   offer.Reader
	products product.Repository
	authn    Authenticator
	cfg      Config
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	orders OrderService,
	offers offer.Reader,
	products product.Repository,
	authn Authenticator,
) *Handler {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Handler{
		orders:   orders,
		offers:   offers,
		products: products,
		authn:    authn,
		cfg:      cfg,
	}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/offers", h.listOffers)
		r.Get("/products", h.listProducts)

		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOwnOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/points", h.balance)
		r.Get("/points/history", h.pointsHistory)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAPIKey(auth.ScopeOrdersAdmin))
			r.Get("/orders", h.adminListOrders)
			r.Get("/orders/{id}", h.adminGetOrder)
			r.Patch("/orders/{id}/status", h.updateStatus)
		})
	})
}

// RoutePattern returns the chi pattern matched by r, or "".
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
