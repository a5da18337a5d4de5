package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillcart/bookstore/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (user_id, coupon_id, total_price, total_item,
		shipping_address, payment_method, tran_id, is_paid, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, book_id, quantity)
		VALUES ($1, $2, $3)`

	orderColumns = `id, user_id, coupon_id, total_price, total_item,
		shipping_address, payment_method, tran_id, is_paid, state, created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	updateOrderStateSQL = `UPDATE orders SET state = $2 WHERE id = $1`

	listOrderItemsSQL = `SELECT book_id, quantity FROM order_items
		WHERE order_id = $1 ORDER BY book_id`
)

var _ order.Reader = (*OrderRepository)(nil)

// OrderRepository implements the read-only order.Reader backed by
// PostgreSQL. All order writes go through the checkout transaction (txn).
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns a single order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, orderID int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}

	items, err := r.listItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ListByUser returns the caller's orders, newest first, with items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, orders)
}

// ListAll returns every order, newest first, with items.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, orders)
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) ([]order.Order, error) {
	for i := range orders {
		items, err := r.listItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *OrderRepository) listItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o       order.Order
		address []byte
		state   string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.CouponID, &o.TotalPrice, &o.TotalItems,
		&address, &o.PaymentMethod, &o.TranID, &o.IsPaid, &state, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.State = order.State(state)
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("decoding shipping address for order %d: %w", o.ID, err)
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.BookID, &it.Quantity)
	return it, err
}

// InsertOrder creates the order row and returns its id.
func (t *txn) InsertOrder(ctx context.Context, o *order.Order) (int64, error) {
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return 0, fmt.Errorf("encoding shipping address: %w", err)
	}

	var id int64
	err = t.tx.QueryRow(ctx, insertOrderSQL,
		o.UserID, o.CouponID, o.TotalPrice, o.TotalItems,
		address, o.PaymentMethod, o.TranID, o.IsPaid, string(o.State),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}
	return id, nil
}

// InsertOrderItems snapshots the purchased lines.
func (t *txn) InsertOrderItems(ctx context.Context, orderID int64, items []order.Item) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, insertOrderItemSQL, orderID, it.BookID, it.Quantity); err != nil {
			return fmt.Errorf("inserting item for order %d: %w", orderID, err)
		}
	}
	return nil
}

// GetOrderForUpdate loads an order under a row lock so lifecycle transitions
// serialize per order.
func (t *txn) GetOrderForUpdate(ctx context.Context, orderID int64) (*order.Order, error) {
	rows, err := t.tx.Query(ctx, getOrderForUpdateSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("locking order %d: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %d: %w", orderID, err)
	}
	return &o, nil
}

// UpdateOrderState writes the new lifecycle state.
func (t *txn) UpdateOrderState(ctx context.Context, orderID int64, s order.State) error {
	_, err := t.tx.Exec(ctx, updateOrderStateSQL, orderID, string(s))
	if err != nil {
		return fmt.Errorf("updating state for order %d: %w", orderID, err)
	}
	return nil
}

// ListOrderItems returns the purchased lines inside the transaction.
func (t *txn) ListOrderItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := t.tx.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}
