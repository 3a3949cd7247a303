package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/order"
)

const setLocalTimeoutsSQL = `SELECT set_config('statement_timeout', $1, true), set_config('lock_timeout', $2, true)`

// TxConfig bounds every write transaction.
type TxConfig struct {
	// Timeout caps the whole transaction, including waiting for row locks.
	Timeout time.Duration
	// LockTimeout caps a single lock wait inside the transaction.
	LockTimeout time.Duration
}

var _ order.Transactor = (*Transactor)(nil)

// Transactor implements order.Transactor on a READ COMMITTED transaction.
// Balance and status checks rely on SELECT ... FOR UPDATE row locks.
type Transactor struct {
	pool *pgxpool.Pool
	cfg  TxConfig
}

// NewTransactor returns a Transactor that uses the given pool.
func NewTransactor(pool *pgxpool.Pool, cfg TxConfig) *Transactor {
	return &Transactor{pool: pool, cfg: cfg}
}

// InTx runs fn in one transaction. It commits when fn returns nil and rolls
// back otherwise, returning fn's error unchanged.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	return pgx.BeginTxFunc(ctx, t.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if err := t.setTimeouts(ctx, tx); err != nil {
			return err
		}
		return fn(ctx, txScope{tx: tx})
	})
}

func (t *Transactor) setTimeouts(ctx context.Context, tx pgx.Tx) error {
	if t.cfg.Timeout <= 0 && t.cfg.LockTimeout <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx, setLocalTimeoutsSQL, millis(t.cfg.Timeout), millis(t.cfg.LockTimeout))
	if err != nil {
		return fmt.Errorf("setting transaction timeouts: %w", err)
	}
	return nil
}

// millis formats d for set_config. Zero disables the timeout.
func millis(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return strconv.FormatInt(d.Milliseconds(), 10)
}

type txScope struct {
	tx pgx.Tx
}

func (s txScope) Orders() order.TxStore  { return &orderTx{tx: s.tx} }
func (s txScope) Points() loyalty.Writer { return &ledgerTx{tx: s.tx} }
