package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
	"github.com/xenking/choco-orders/internal/domain/product"
)

// CreateOrderRequest holds the checkout input. Items carry caller-side
// price snapshots; Meta carries promo, payment and contact details.
type CreateOrderRequest struct {
	UserID   *int64
	Items    []Item
	OfferID  *int64
	Shipping decimal.Decimal
	Meta     Meta
}

// Service is the order and loyalty transaction engine.
type Service struct {
	offers   offer.Reader
	products product.Repository
	points   loyalty.Reader
	orders   Repository
	tx       Transactor

	policy PricingPolicy
	tracer trace.Tracer
	stats  stats
}

// NewService creates the engine with its storage dependencies.
func NewService(
	offers offer.Reader,
	products product.Repository,
	points loyalty.Reader,
	orders Repository,
	tx Transactor,
	opts ...Option,
) *Service {
	o := newOptions(opts)
	return &Service{
		offers:   offers,
		products: products,
		points:   points,
		orders:   orders,
		tx:       tx,
		policy:   o.policy,
		tracer:   o.tracerProvider.Tracer(instrumentationName),
		stats:    newStats(o.meterProvider.Meter(instrumentationName)),
	}
}

// CreateOrder prices the cart, applies the offer and moves points, writing
// the order, its items, its metadata and the balance change in one
// transaction. On any error nothing is persisted.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer func() { s.finish(ctx, span, rerr) }()

	items, err := s.prepareItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if req.Shipping.IsNegative() || !wholeCents(req.Shipping) {
		return nil, ErrInvalidShipping
	}

	applied, err := s.resolveOffer(ctx, req.OfferID, req.Meta.Promo)
	if err != nil {
		return nil, err
	}

	hasUser := req.UserID != nil
	q := Price(items, applied, req.Shipping, hasUser)
	if !hasUser && q.PointsCost > 0 {
		return nil, errors.Wrap(loyalty.ErrInsufficientPoints, "guest checkout cannot redeem points")
	}

	o := &Order{
		Status:   StatusProcessing,
		Subtotal: q.Subtotal,
		Discount: q.Discount,
		Shipping: q.Shipping,
		Total:    q.Total,
		UserID:   req.UserID,
		Items:    items,
		Meta:     freezeMeta(req.Meta, applied, q, hasUser),
	}

	err = s.tx.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if !hasUser {
			return tx.Orders().Insert(ctx, o)
		}

		userID := *req.UserID
		acc, err := tx.Points().LockBalance(ctx, userID)
		if err != nil {
			return err
		}
		if acc.Points < q.PointsCost {
			return errors.Wrapf(loyalty.ErrInsufficientPoints, "balance %d, offer costs %d", acc.Points, q.PointsCost)
		}
		if err := tx.Orders().Insert(ctx, o); err != nil {
			return err
		}
		if q.PointsCost > 0 {
			if err := tx.Points().Debit(ctx, userID, o.ID, q.PointsCost); err != nil {
				return err
			}
		}
		if q.PointsEarned > 0 {
			if err := tx.Points().Credit(ctx, userID, o.ID, q.PointsEarned); err != nil {
				return err
			}
		}
		o.User = &UserSummary{ID: acc.UserID, Name: acc.Name, Email: acc.Email}
		return nil
	})
	if err != nil {
		return nil, wrapStorage("create order", err)
	}

	span.SetAttributes(attribute.Int64("order.id", o.ID))
	s.stats.created.Add(ctx, 1)
	s.stats.pointsSpent.Add(ctx, q.PointsCost)
	s.stats.pointsEarned.Add(ctx, q.PointsEarned)
	zctx.From(ctx).Info("Order created",
		zap.Int64("order_id", o.ID),
		zap.Stringer("total", o.Total),
		zap.Int64("points_spent", q.PointsCost),
		zap.Int64("points_earned", q.PointsEarned),
	)

	return o, nil
}

// UpdateStatus moves an order through the status workflow and returns the
// full order view. Updating to the current status is a no-op. The view is
// read under the same row lock, so any error leaves the status unchanged.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus",
		trace.WithAttributes(attribute.Int64("order.id", id), attribute.String("order.status", status)),
	)
	defer func() { s.finish(ctx, span, rerr) }()

	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		view    *Order
		changed bool
	)
	err = s.tx.InTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.Orders().LockStatus(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckTransition(current, next); err != nil {
			return err
		}
		if current != next {
			if err := tx.Orders().SetStatus(ctx, id, next); err != nil {
				return err
			}
			changed = true
		}
		view, err = tx.Orders().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapStorage("update status", err)
	}

	if changed {
		zctx.From(ctx).Info("Order status updated",
			zap.Int64("order_id", id),
			zap.String("status", string(next)),
		)
	}

	return view, nil
}

// GetOrder returns one order or ErrOrderNotFound.
func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, wrapStorage("get order", err)
	}
	return o, nil
}

// ListOrders returns orders newest first. A nil userID lists every order.
func (s *Service) ListOrders(ctx context.Context, userID *int64) ([]Order, error) {
	orders, err := s.orders.List(ctx, ListFilter{UserID: userID})
	if err != nil {
		return nil, wrapStorage("list orders", err)
	}
	return orders, nil
}

// Balance returns the user's current point balance.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	points, err := s.points.Balance(ctx, userID)
	if err != nil {
		return 0, wrapStorage("get balance", err)
	}
	return points, nil
}

// PointsHistory returns the user's most recent balance movements.
func (s *Service) PointsHistory(ctx context.Context, userID int64, limit int) ([]loyalty.Entry, error) {
	entries, err := s.points.History(ctx, userID, limit)
	if err != nil {
		return nil, wrapStorage("get points history", err)
	}
	return entries, nil
}

// prepareItems validates the cart and, under the catalog policy, replaces
// the caller's snapshots with live catalog names and prices.
func (s *Service) prepareItems(ctx context.Context, in []Item) ([]Item, error) {
	if len(in) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]Item, len(in))
	for i, it := range in {
		if it.Qty < 1 {
			return nil, &InvalidItemError{Index: i, Reason: "quantity must be at least 1"}
		}
		if it.Price.IsNegative() {
			return nil, &InvalidItemError{Index: i, Reason: "price must not be negative"}
		}
		if !wholeCents(it.Price) {
			return nil, &InvalidItemError{Index: i, Reason: "price must not have more than 2 decimal places"}
		}
		if it.Price.GreaterThan(maxItemPrice) {
			return nil, &InvalidItemError{Index: i, Reason: "price exceeds " + maxItemPrice.String()}
		}
		items[i] = it
	}

	if s.policy != PricingCatalog {
		return items, nil
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, wrapStorage("get products", err)
	}
	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	for i, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &InvalidItemError{Index: i, Reason: "product not found"}
		}
		items[i].Name = p.Name
		items[i].Price = p.Price
	}
	return items, nil
}

// resolveOffer reads the offer once. An explicit offer id must resolve; a
// free-text promo code that matches nothing means no offer.
func (s *Service) resolveOffer(ctx context.Context, id *int64, promo string) (*offer.Offer, error) {
	if id != nil {
		o, err := s.offers.ResolveOffer(ctx, *id)
		if errors.Is(err, offer.ErrNotFound) {
			return nil, errors.Wrapf(offer.ErrUnavailable, "offer %d", *id)
		}
		if err != nil {
			return nil, wrapStorage("resolve offer", err)
		}
		return o, nil
	}

	code := strings.TrimSpace(promo)
	if code == "" {
		return nil, nil
	}
	o, err := s.offers.ResolveCode(ctx, code)
	if errors.Is(err, offer.ErrNotFound) {
		zctx.From(ctx).Debug("Promo code matches no active offer", zap.String("promo", code))
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorage("resolve promo code", err)
	}
	return o, nil
}

// freezeMeta builds the stored metadata: caller-supplied contact and
// payment, plus the discount label and point deltas fixed at creation.
func freezeMeta(in Meta, applied *offer.Offer, q Quote, hasUser bool) *Meta {
	m := Meta{
		Version: MetaVersion,
		Promo:   strings.TrimSpace(in.Promo),
		Payment: in.Payment,
		Contact: in.Contact,
	}
	if m.Payment == "" {
		m.Payment = DefaultPayment
	}
	if applied != nil {
		id := applied.ID
		m.OfferID = &id
		m.DiscountLabel = applied.Label()
		if m.Promo == "" {
			m.Promo = applied.Code
		}
	}
	if q.PointsCost > 0 {
		spent := q.PointsCost
		m.PointsSpent = &spent
	}
	if hasUser {
		earned := q.PointsEarned
		m.PointsEarned = &earned
	}
	return &m
}

func (s *Service) finish(ctx context.Context, span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	code := Code(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	s.stats.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}
