package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/choco-orders/internal/domain/offer"
)

const (
	offerColumns = `id, code, title, kind, value, points_cost, active`

	getOfferByIDSQL = `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 AND active = TRUE`

	getOfferByCodeSQL = `SELECT ` + offerColumns + ` FROM offers
		WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	listActiveOffersSQL = `SELECT ` + offerColumns + ` FROM offers WHERE active = TRUE ORDER BY id`

	listOfferCodesSQL = `SELECT UPPER(code) FROM offers`

	upsertOfferSQL = `INSERT INTO offers (code, title, kind, value, points_cost, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ((UPPER(code))) DO UPDATE SET
			title = EXCLUDED.title,
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			points_cost = EXCLUDED.points_cost,
			active = EXCLUDED.active
		RETURNING id`
)

var _ offer.Reader = (*OfferRepository)(nil)

// OfferRepository implements offer.Reader backed by PostgreSQL.
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// ResolveOffer returns an active offer by id.
func (r *OfferRepository) ResolveOffer(ctx context.Context, id int64) (*offer.Offer, error) {
	return r.one(ctx, getOfferByIDSQL, id)
}

// ResolveCode returns an active offer by its code (case-insensitive).
func (r *OfferRepository) ResolveCode(ctx context.Context, code string) (*offer.Offer, error) {
	return r.one(ctx, getOfferByCodeSQL, code)
}

func (r *OfferRepository) one(ctx context.Context, sql string, arg any) (*offer.Offer, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("resolving offer %v: %w", arg, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOffer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offer.ErrNotFound
		}
		return nil, fmt.Errorf("resolving offer %v: %w", arg, err)
	}
	return &o, nil
}

// ListActive returns all active offers ordered by id.
func (r *OfferRepository) ListActive(ctx context.Context) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, listActiveOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

// ListCodes returns every stored offer code, upper-cased.
func (r *OfferRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listOfferCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing offer codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Upsert inserts an offer or updates the one with the same code, and sets
// o.ID.
func (r *OfferRepository) Upsert(ctx context.Context, o *offer.Offer) error {
	if !o.Valid() {
		return errors.Errorf("offer %q: unknown kind %q", o.Code, o.Kind)
	}
	err := r.pool.QueryRow(ctx, upsertOfferSQL,
		o.Code, o.Title, string(o.Kind), o.Value, o.PointsCost, o.Active,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("upserting offer %q: %w", o.Code, err)
	}
	return nil
}

func scanOffer(row pgx.CollectableRow) (offer.Offer, error) {
	var (
		o    offer.Offer
		kind string
	)
	err := row.Scan(&o.ID, &o.Code, &o.Title, &kind, &o.Value, &o.PointsCost, &o.Active)
	o.Kind = offer.Kind(kind)
	return o, err
}
