package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
)

const (
	getBalanceSQL = `SELECT points FROM users WHERE id = $1`

	listLedgerSQL = `SELECT id, user_id, order_id, delta, reason, balance_after, created_at
		FROM points_ledger WHERE user_id = $1 ORDER BY id DESC LIMIT $2`

	lockBalanceSQL = `SELECT id, name, email, points FROM users WHERE id = $1 FOR UPDATE`

	// movePointsSQL applies a signed delta only when the balance stays
	// non-negative and records the movement in the same statement.
	movePointsSQL = `WITH moved AS (
			UPDATE users SET points = points + $2
			WHERE id = $1 AND points + $2 >= 0
			RETURNING id, points
		)
		INSERT INTO points_ledger (user_id, order_id, delta, reason, balance_after)
		SELECT id, $3, $2, $4, points FROM moved
		RETURNING balance_after`
)

// DefaultHistoryLimit is used when History is called without a limit.
const DefaultHistoryLimit = 50

var _ loyalty.Reader = (*LedgerRepository)(nil)

// LedgerRepository implements loyalty.Reader backed by PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a LedgerRepository that uses the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Balance returns the current balance, or 0 for an unknown user.
func (r *LedgerRepository) Balance(ctx context.Context, userID int64) (int64, error) {
	var points int64
	if err := r.pool.QueryRow(ctx, getBalanceSQL, userID).Scan(&points); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting balance for user %d: %w", userID, err)
	}
	return points, nil
}

// History returns the user's ledger entries newest first.
func (r *LedgerRepository) History(ctx context.Context, userID int64, limit int) ([]loyalty.Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.pool.Query(ctx, listLedgerSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing points history for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanEntry)
}

func scanEntry(row pgx.CollectableRow) (loyalty.Entry, error) {
	var (
		e      loyalty.Entry
		reason string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.OrderID, &e.Delta, &reason, &e.BalanceAfter, &e.CreatedAt)
	e.Reason = loyalty.Reason(reason)
	return e, err
}

var _ loyalty.Writer = (*ledgerTx)(nil)

// ledgerTx is the balance write side bound to an open transaction.
type ledgerTx struct {
	tx pgx.Tx
}

// LockBalance reads the account and holds the user row lock.
func (l *ledgerTx) LockBalance(ctx context.Context, userID int64) (*loyalty.Account, error) {
	var acc loyalty.Account
	err := l.tx.QueryRow(ctx, lockBalanceSQL, userID).Scan(&acc.UserID, &acc.Name, &acc.Email, &acc.Points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(loyalty.ErrAccountNotFound, "user %d", userID)
		}
		return nil, fmt.Errorf("locking balance for user %d: %w", userID, err)
	}
	return &acc, nil
}

// Debit subtracts amount, failing with ErrInsufficientPoints when the
// balance is too low.
func (l *ledgerTx) Debit(ctx context.Context, userID, orderID, amount int64) error {
	if amount < 0 {
		return errors.Errorf("debit of negative amount %d", amount)
	}
	err := l.move(ctx, userID, orderID, -amount, loyalty.ReasonRedeem)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(loyalty.ErrInsufficientPoints, "debit %d from user %d", amount, userID)
	}
	return err
}

// Credit adds amount to the balance.
func (l *ledgerTx) Credit(ctx context.Context, userID, orderID, amount int64) error {
	if amount < 0 {
		return errors.Errorf("credit of negative amount %d", amount)
	}
	err := l.move(ctx, userID, orderID, amount, loyalty.ReasonEarn)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(loyalty.ErrAccountNotFound, "user %d", userID)
	}
	return err
}

func (l *ledgerTx) move(ctx context.Context, userID, orderID, delta int64, reason loyalty.Reason) error {
	var balance int64
	err := l.tx.QueryRow(ctx, movePointsSQL, userID, delta, orderID, string(reason)).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("moving %d points for user %d: %w", delta, userID, err)
	}
	return nil
}
