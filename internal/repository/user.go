package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
)

// upsertUserSQL keeps an existing balance; points only apply to new rows.
const upsertUserSQL = `INSERT INTO users (name, email, points) VALUES ($1, $2, $3)
	ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
	RETURNING id, points`

// UserRepository manages the externally owned users table for seeding and
// tests.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Upsert creates the user keyed by email and sets acc.UserID and acc.Points
// from the stored row.
func (r *UserRepository) Upsert(ctx context.Context, acc *loyalty.Account) error {
	err := r.pool.QueryRow(ctx, upsertUserSQL, acc.Name, acc.Email, acc.Points).Scan(&acc.UserID, &acc.Points)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", acc.Email, err)
	}
	return nil
}
