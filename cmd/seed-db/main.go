// Command seed-db loads demo users, products, offers and an operator API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/choco-orders/internal/domain/auth"
	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
	"github.com/xenking/choco-orders/internal/domain/product"
	"github.com/xenking/choco-orders/internal/repository"
)

type catalogJSON struct {
	Users []struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		Points int64  `json:"points"`
	} `json:"users"`
	Products []struct {
		ID          int64           `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		Weight      string          `json:"weight"`
		Image       string          `json:"image"`
		Category    string          `json:"category"`
	} `json:"products"`
	Offers []struct {
		Code       string          `json:"code"`
		Title      string          `json:"title"`
		Kind       string          `json:"kind"`
		Value      decimal.Decimal `json:"value"`
		PointsCost int64           `json:"pointsCost"`
	} `json:"offers"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or CHOCO_DATABASE_URL / DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&apiKey, "api-key", "", "operator API key to seed (or CHOCO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CHOCO_API_KEY_PEPPER env)")
	flag.Parse()

	databaseURL = firstNonEmpty(databaseURL, os.Getenv("CHOCO_DATABASE_URL"), os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or CHOCO_DATABASE_URL")
		os.Exit(1)
	}
	apiKey = firstNonEmpty(apiKey, os.Getenv("CHOCO_SEED_API_KEY"))
	apiKeyPepper = firstNonEmpty(apiKeyPepper, os.Getenv("CHOCO_API_KEY_PEPPER"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedUsers(ctx, pool, catalog); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedProducts(ctx, pool, catalog); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedOffers(ctx, pool, catalog); err != nil {
		return errors.Wrap(err, "seed offers")
	}

	if apiKey == "" {
		slog.Warn("no API key given, skipping operator key")
		return nil
	}
	return seedAPIKey(ctx, pool, apiKey, pepper)
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, catalog catalogJSON) error {
	users := repository.NewUserRepository(pool)
	for _, u := range catalog.Users {
		acc := &loyalty.Account{Name: u.Name, Email: u.Email, Points: u.Points}
		if err := users.Upsert(ctx, acc); err != nil {
			return err
		}
		slog.Info("upserted user",
			slog.Int64("id", acc.UserID),
			slog.String("email", acc.Email),
			slog.Int64("points", acc.Points),
		)
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, catalog catalogJSON) error {
	products := repository.NewProductRepository(pool)
	for _, p := range catalog.Products {
		if err := products.Upsert(ctx, product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Weight:      p.Weight,
			Image:       p.Image,
			Category:    p.Category,
		}); err != nil {
			return err
		}
	}
	slog.Info("upserted products", slog.Int("count", len(catalog.Products)))
	return nil
}

func seedOffers(ctx context.Context, pool *pgxpool.Pool, catalog catalogJSON) error {
	offers := repository.NewOfferRepository(pool)
	for _, o := range catalog.Offers {
		of := &offer.Offer{
			Code:       o.Code,
			Title:      o.Title,
			Kind:       offer.Kind(o.Kind),
			Value:      o.Value,
			PointsCost: o.PointsCost,
			Active:     true,
		}
		if err := offers.Upsert(ctx, of); err != nil {
			return err
		}
		slog.Info("upserted offer", slog.Int64("id", of.ID), slog.String("code", of.Code))
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	info := auth.APIKeyInfo{
		ID:      "operator",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default operator key",
		Scopes:  []string{auth.ScopeOrdersAdmin},
	}
	if err := repository.NewAPIKeyRepository(pool).Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert operator API key")
	}
	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
