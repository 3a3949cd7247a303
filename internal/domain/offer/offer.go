package offer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercent takes a percentage of the subtotal.
	KindPercent Kind = "percent"
	// KindFixed takes a fixed amount, capped at the subtotal.
	KindFixed Kind = "fixed"
)

var (
	// ErrNotFound is returned by a Reader when no active offer matches.
	ErrNotFound = errors.New("offer not found")
	// ErrUnavailable is returned when an order explicitly references an
	// offer that is unknown or no longer active.
	ErrUnavailable = errors.New("offer unavailable")
)

// Offer is a promotional rule, optionally priced in loyalty points.
type Offer struct {
	ID         int64
	Code       string
	Title      string
	Kind       Kind
	Value      decimal.Decimal
	PointsCost int64
	Active     bool
}

// Valid reports whether the offer kind is one of the supported strategies.
func (o Offer) Valid() bool {
	return o.Kind == KindPercent || o.Kind == KindFixed
}

// Reader is the catalog slice the order engine consumes. Implementations
// only ever return active offers; anything else is ErrNotFound.
type Reader interface {
	ResolveOffer(ctx context.Context, id int64) (*Offer, error)
	ResolveCode(ctx context.Context, code string) (*Offer, error)
	ListActive(ctx context.Context) ([]Offer, error)
}
