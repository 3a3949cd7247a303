package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a live catalog entry. Orders never reference it directly; they
// keep a name and price snapshot taken at checkout.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Weight      string
	Image       string
	Category    string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// List returns the catalog, optionally restricted to one category.
	List(ctx context.Context, category string) ([]Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
