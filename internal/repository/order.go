package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/choco-orders/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (status, subtotal, discount, shipping, total, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, name, price, qty)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertOrderMetaSQL = `INSERT INTO order_meta (order_id, version, data) VALUES ($1, $2, $3)`

	selectOrderSQL = `SELECT o.id, o.created_at, o.status, o.subtotal, o.discount, o.shipping, o.total,
		o.user_id, u.name, u.email, m.data
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		LEFT JOIN order_meta m ON m.order_id = o.id`

	getOrderSQL = selectOrderSQL + ` WHERE o.id = $1`

	listOrdersSQL = selectOrderSQL + ` WHERE ($1::bigint IS NULL OR o.user_id = $1)
		ORDER BY o.id DESC LIMIT $2`

	listOrderItemsSQL = `SELECT order_id, product_id, name, price, qty
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	lockOrderStatusSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	setOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Get returns the full view of one order.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, r.pool, id)
}

// List returns orders newest first, optionally for a single user.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	var limit *int64
	if filter.Limit > 0 {
		l := int64(filter.Limit)
		limit = &l
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, filter.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	if err := attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// querier is the read side shared by the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getOrder(ctx context.Context, q querier, id int64) (*order.Order, error) {
	rows, err := q.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	orders := []order.Order{o}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachItems loads line items for all orders with a single query.
func attachItems(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
		orders[i].Items = []order.Item{}
	}

	rows, err := q.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      order.Item
			qty     int32
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &qty); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		it.Qty = int(qty)
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		status   string
		userName *string
		email    *string
		metaData []byte
	)
	err := row.Scan(
		&o.ID, &o.CreatedAt, &status, &o.Subtotal, &o.Discount, &o.Shipping, &o.Total,
		&o.UserID, &userName, &email, &metaData,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)

	if o.UserID != nil && userName != nil {
		o.User = &order.UserSummary{ID: *o.UserID, Name: *userName}
		if email != nil {
			o.User.Email = *email
		}
	}

	if metaData != nil {
		m, err := decodeMeta(metaData)
		if err != nil {
			return o, fmt.Errorf("order %d: %w", o.ID, err)
		}
		o.Meta = m
	}
	return o, nil
}

// encodeMeta renders m as the order_meta.data document.
func encodeMeta(m *order.Meta) ([]byte, error) {
	return m.MarshalJSON()
}

// decodeMeta parses an order_meta.data document.
func decodeMeta(data []byte) (*order.Meta, error) {
	var m order.Meta
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &m, nil
}

var _ order.TxStore = (*orderTx)(nil)

// orderTx is the order write side bound to an open transaction.
type orderTx struct {
	tx pgx.Tx
}

// Insert writes the order header, then items and metadata in one batch.
func (s *orderTx) Insert(ctx context.Context, o *order.Order) error {
	err := s.tx.QueryRow(ctx, insertOrderSQL,
		string(o.Status), o.Subtotal, o.Discount, o.Shipping, o.Total, o.UserID,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	b := &pgx.Batch{}
	for i, it := range o.Items {
		b.Queue(insertOrderItemSQL, o.ID, i, it.ProductID, it.Name, it.Price, it.Qty)
	}
	if o.Meta != nil {
		data, err := encodeMeta(o.Meta)
		if err != nil {
			return fmt.Errorf("encoding order %d meta: %w", o.ID, err)
		}
		b.Queue(insertOrderMetaSQL, o.ID, o.Meta.Version, data)
	}

	if err := s.tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("inserting order %d details: %w", o.ID, err)
	}
	return nil
}

// LockStatus reads the status and holds the order row lock.
func (s *orderTx) LockStatus(ctx context.Context, id int64) (order.Status, error) {
	var status string
	if err := s.tx.QueryRow(ctx, lockOrderStatusSQL, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", order.ErrOrderNotFound
		}
		return "", fmt.Errorf("locking order %d: %w", id, err)
	}
	return order.Status(status), nil
}

// SetStatus updates the status of a locked order.
func (s *orderTx) SetStatus(ctx context.Context, id int64, status order.Status) error {
	tag, err := s.tx.Exec(ctx, setOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("setting order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// Get reads the order inside the transaction, including uncommitted changes.
func (s *orderTx) Get(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, s.tx, id)
}
