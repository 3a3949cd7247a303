//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xenking/choco-orders/internal/domain/auth"
	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
	"github.com/xenking/choco-orders/internal/domain/order"
	"github.com/xenking/choco-orders/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("choco"),
		tcpostgres.WithUsername("choco"),
		tcpostgres.WithPassword("choco"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Migrations are idempotent.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations rerun: %v", err)
	}

	if err := seedCatalog(ctx); err != nil {
		log.Fatalf("seed: %v", err)
	}

	return m.Run()
}

func seedCatalog(ctx context.Context) error {
	products := NewProductRepository(testPool)
	for _, p := range []product.Product{
		{ID: 1, Name: "Dark Truffle Box", Price: decimal.RequireFromString("24.50"), Category: "truffles"},
		{ID: 2, Name: "Milk Hazelnut Bar", Price: decimal.RequireFromString("6.90"), Category: "bars"},
		{ID: 3, Name: "Gift Hamper", Price: decimal.NewFromInt(89), Category: "gifts"},
	} {
		if err := products.Upsert(ctx, p); err != nil {
			return err
		}
	}
	offers := NewOfferRepository(testPool)
	for _, o := range []*offer.Offer{
		{Code: "SWEET10", Title: "10% off", Kind: offer.KindPercent, Value: decimal.NewFromInt(10), Active: true},
		{Code: "CHOCO8", Title: "5 off for 8 points", Kind: offer.KindFixed, Value: decimal.NewFromInt(5), PointsCost: 8, Active: true},
		{Code: "RETIRED", Title: "Gone", Kind: offer.KindPercent, Value: decimal.NewFromInt(50), Active: false},
	} {
		if err := offers.Upsert(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func newUser(t *testing.T, points int64) *loyalty.Account {
	t.Helper()
	email := strings.ToLower(strings.NewReplacer("/", ".", " ", "").Replace(t.Name())) + "@example.com"
	acc := &loyalty.Account{Name: t.Name(), Email: email, Points: points}
	require.NoError(t, NewUserRepository(testPool).Upsert(context.Background(), acc))
	return acc
}

func offerID(t *testing.T, code string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, testPool.QueryRow(context.Background(),
		`SELECT id FROM offers WHERE UPPER(code) = $1`, code).Scan(&id))
	return id
}

func newService() *order.Service {
	return order.NewService(
		NewOfferRepository(testPool),
		NewProductRepository(testPool),
		NewLedgerRepository(testPool),
		NewOrderRepository(testPool),
		NewTransactor(testPool, TxConfig{Timeout: 5 * time.Second, LockTimeout: 2 * time.Second}),
	)
}

func cart() []order.Item {
	return []order.Item{
		{ProductID: 1, Name: "Dark Truffle Box", Price: decimal.RequireFromString("24.50"), Qty: 2},
		{ProductID: 2, Name: "Milk Hazelnut Bar", Price: decimal.RequireFromString("6.90"), Qty: 1},
	}
}

func TestCreateOrder_EarnsPoints(t *testing.T) {
	ctx := context.Background()
	acc := newUser(t, 0)
	svc := newService()

	items := []order.Item{{ProductID: 3, Name: "Gift Hamper", Price: decimal.NewFromInt(89), Qty: 3}}
	o, err := svc.CreateOrder(ctx, order.CreateOrderRequest{
		UserID:   &acc.UserID,
		Items:    items,
		Shipping: decimal.NewFromInt(10),
		Meta: order.Meta{
			Contact: order.Contact{Name: "Ana", City: "Lisbon"},
		},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, o.ID, int64(1001))
	assert.Equal(t, order.StatusProcessing, o.Status)
	assert.True(t, decimal.NewFromInt(277).Equal(o.Total))

	balance, err := svc.Balance(ctx, acc.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	stored, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Gift Hamper", stored.Items[0].Name)
	require.NotNil(t, stored.User)
	assert.Equal(t, acc.Email, stored.User.Email)
	require.NotNil(t, stored.Meta)
	assert.Equal(t, order.DefaultPayment, stored.Meta.Payment)
	assert.Equal(t, "Lisbon", stored.Meta.Contact.City)
	require.NotNil(t, stored.Meta.PointsEarned)
	assert.Equal(t, int64(2), *stored.Meta.PointsEarned)

	history, err := svc.PointsHistory(ctx, acc.UserID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, loyalty.ReasonEarn, history[0].Reason)
	assert.Equal(t, o.ID, history[0].OrderID)
	assert.Equal(t, int64(2), history[0].BalanceAfter)
}

func TestCreateOrder_PromoCode(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	o, err := svc.CreateOrder(ctx, order.CreateOrderRequest{
		Items: cart(),
		Meta:  order.Meta{Promo: " sweet10 "},
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5.59").Equal(o.Discount), o.Discount.String())
	assert.Nil(t, o.UserID)

	stored, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.User)
	assert.Equal(t, "SWEET10 (10%)", stored.Meta.DiscountLabel)
	assert.Nil(t, stored.Meta.PointsEarned)
}

func TestCreateOrder_InactiveOffer(t *testing.T) {
	id := offerID(t, "RETIRED")
	_, err := newService().CreateOrder(context.Background(), order.CreateOrderRequest{
		Items:   cart(),
		OfferID: &id,
	})
	require.ErrorIs(t, err, offer.ErrUnavailable)
}

func TestCreateOrder_ConcurrentRedemptions(t *testing.T) {
	ctx := context.Background()
	acc := newUser(t, 10)
	svc := newService()
	id := offerID(t, "CHOCO8")

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, order.CreateOrderRequest{
				UserID:  &acc.UserID,
				Items:   cart(),
				OfferID: &id,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, loyalty.ErrInsufficientPoints):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)

	balance, err := svc.Balance(ctx, acc.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	orders, err := svc.ListOrders(ctx, &acc.UserID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestTransactor_RollsBack(t *testing.T) {
	ctx := context.Background()
	acc := newUser(t, 3)
	tx := NewTransactor(testPool, TxConfig{Timeout: 5 * time.Second, LockTimeout: time.Second})

	var orderID int64
	err := tx.InTx(ctx, func(ctx context.Context, tx order.Tx) error {
		o := &order.Order{
			Status:   order.StatusProcessing,
			Subtotal: decimal.NewFromInt(10),
			Discount: decimal.Zero,
			Shipping: decimal.Zero,
			Total:    decimal.NewFromInt(10),
			UserID:   &acc.UserID,
			Items:    cart()[:1],
		}
		if err := tx.Orders().Insert(ctx, o); err != nil {
			return err
		}
		orderID = o.ID
		return tx.Points().Debit(ctx, acc.UserID, o.ID, 4)
	})
	require.ErrorIs(t, err, loyalty.ErrInsufficientPoints)
	require.NotZero(t, orderID)

	_, err = NewOrderRepository(testPool).Get(ctx, orderID)
	require.ErrorIs(t, err, order.ErrOrderNotFound)

	balance, err := NewLedgerRepository(testPool).Balance(ctx, acc.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
}

func TestLedger_UnknownUser(t *testing.T) {
	ctx := context.Background()
	balance, err := NewLedgerRepository(testPool).Balance(ctx, 987654)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = newService().CreateOrder(ctx, order.CreateOrderRequest{
		UserID: ptr(int64(987654)),
		Items:  cart(),
	})
	require.ErrorIs(t, err, loyalty.ErrAccountNotFound)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	o, err := svc.CreateOrder(ctx, order.CreateOrderRequest{Items: cart()})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, o.ID, "Pending")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, updated.Status)

	updated, err = svc.UpdateStatus(ctx, o.ID, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, updated.Status)

	_, err = svc.UpdateStatus(ctx, o.ID, "Processing")
	require.ErrorIs(t, err, order.ErrInvalidStatus)

	_, err = svc.UpdateStatus(ctx, 1, "Pending")
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	acc := newUser(t, 0)
	svc := newService()

	var ids []int64
	for range 3 {
		o, err := svc.CreateOrder(ctx, order.CreateOrderRequest{UserID: &acc.UserID, Items: cart()})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	orders, err := NewOrderRepository(testPool).List(ctx, order.ListFilter{UserID: &acc.UserID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, ids[2], orders[0].ID)
	assert.Equal(t, ids[1], orders[1].ID)
	assert.Len(t, orders[0].Items, 2)

	all, err := NewOrderRepository(testPool).List(ctx, order.ListFilter{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 3)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	bars, err := NewProductRepository(testPool).List(ctx, "bars")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "Milk Hazelnut Bar", bars[0].Name)

	got, err := NewProductRepository(testPool).GetByIDs(ctx, []int64{1, 3, 99})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	offers := NewOfferRepository(testPool)
	active, err := offers.ListActive(ctx)
	require.NoError(t, err)
	for _, o := range active {
		assert.True(t, o.Active, o.Code)
	}

	o, err := offers.ResolveCode(ctx, "choco8")
	require.NoError(t, err)
	assert.Equal(t, int64(8), o.PointsCost)

	_, err = offers.ResolveCode(ctx, "RETIRED")
	require.ErrorIs(t, err, offer.ErrNotFound)
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(testPool)
	hash := auth.HashKey([]byte("pepper"), fmt.Sprintf("key-%d", time.Now().UnixNano()))

	require.NoError(t, repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "ops",
		KeyHash: hash,
		Name:    "Ops",
		Scopes:  []string{auth.ScopeOrdersAdmin},
	}))

	info, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "ops", info.ID)
	assert.True(t, info.HasScope(auth.ScopeOrdersAdmin))

	_, err = repo.FindByHash(ctx, "missing")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func ptr[T any](v T) *T { return &v }
