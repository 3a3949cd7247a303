// Package loyalty models the per-user choco point balance.
//
// A balance is a single non-negative counter. It only moves together with an
// order: Debit and Credit take the order id and must run inside the same
// transaction as the order write they belong to.
package loyalty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientPoints is returned when a debit exceeds the balance.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrAccountNotFound is returned when the user has no balance row.
	ErrAccountNotFound = errors.New("account not found")
)

// UnitsPerPoint is the amount of currency that earns one point.
const UnitsPerPoint = 100

var unitsPerPoint = decimal.NewFromInt(UnitsPerPoint)

// Earned returns floor(total / UnitsPerPoint), never negative.
func Earned(total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return total.Div(unitsPerPoint).Floor().IntPart()
}

// Reason tags a balance movement in the audit log.
type Reason string

const (
	ReasonRedeem Reason = "redeem"
	ReasonEarn   Reason = "earn"
)

// Account is a locked view of a user's balance together with the user
// summary attached to orders.
type Account struct {
	UserID int64
	Name   string
	Email  string
	Points int64
}

// Entry is one row of the append-only points audit log.
type Entry struct {
	ID           int64
	UserID       int64
	OrderID      int64
	Delta        int64
	Reason       Reason
	BalanceAfter int64
	CreatedAt    time.Time
}

// Reader exposes side-effect free balance reads.
type Reader interface {
	// Balance returns 0 for a user without a balance row.
	Balance(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64, limit int) ([]Entry, error)
}

// Writer mutates balances. It is always bound to an open transaction.
type Writer interface {
	// LockBalance reads the account and holds a row lock on it until the
	// transaction ends.
	LockBalance(ctx context.Context, userID int64) (*Account, error)
	Debit(ctx context.Context, userID, orderID, amount int64) error
	Credit(ctx context.Context, userID, orderID, amount int64) error
}
