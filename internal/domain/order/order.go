package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
)

// Order is a placed order with its line items, metadata and owner summary.
// Only Status changes after creation.
type Order struct {
	ID        int64
	CreatedAt time.Time
	Status    Status
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
	UserID    *int64
	Items     []Item
	// Meta is nil when the metadata row is missing.
	Meta *Meta
	User *UserSummary
}

// Item is a line item snapshot. Name and Price are copied at checkout and
// never re-derived from the catalog.
type Item struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Qty       int
}

// UserSummary is the owning-user view attached to orders on reads.
type UserSummary struct {
	ID    int64
	Name  string
	Email string
}

// ListFilter narrows ListOrders. A nil UserID lists every order.
type ListFilter struct {
	UserID *int64
	Limit  int
}

// Repository reads persisted orders outside of any write transaction.
type Repository interface {
	// Get returns ErrOrderNotFound when id does not exist.
	Get(ctx context.Context, id int64) (*Order, error)
	// List returns orders newest first.
	List(ctx context.Context, filter ListFilter) ([]Order, error)
}

// TxStore is the order write side bound to one transaction.
type TxStore interface {
	// Insert writes the header, items and metadata, then sets o.ID and
	// o.CreatedAt from the stored row.
	Insert(ctx context.Context, o *Order) error
	// LockStatus returns the current status and locks the order row.
	LockStatus(ctx context.Context, id int64) (Status, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	// Get returns the full order view as seen by the transaction.
	Get(ctx context.Context, id int64) (*Order, error)
}

// Tx groups everything that must commit or roll back together.
type Tx interface {
	Orders() TxStore
	Points() loyalty.Writer
}

// Transactor runs fn inside a single transaction. A non-nil error from fn
// rolls everything back and is returned to the caller.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
