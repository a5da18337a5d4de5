package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillcart/bookstore/internal/domain/payment"
)

const (
	insertTempOrderSQL = `INSERT INTO temp_orders (tran_id, user_id, items,
		shipping_address, coupon_code, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// The delete doubles as the idempotency gate: whichever reconciliation
	// transaction deletes the row first wins, the other sees zero rows.
	consumeTempOrderSQL = `DELETE FROM temp_orders WHERE tran_id = $1
		RETURNING tran_id, user_id, items, shipping_address, coupon_code, total_price, created_at`

	sweepTempOrdersSQL = `DELETE FROM temp_orders WHERE created_at < $1`

	insertPaymentLogSQL = `INSERT INTO payment_logs (tran_id, user_id, amount, payment_method, order_id)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ payment.TempOrderRepository = (*TempOrderRepository)(nil)

// TempOrderRepository implements payment.TempOrderRepository backed by
// PostgreSQL.
type TempOrderRepository struct {
	pool *pgxpool.Pool
}

// NewTempOrderRepository returns a TempOrderRepository that uses the given pool.
func NewTempOrderRepository(pool *pgxpool.Pool) *TempOrderRepository {
	return &TempOrderRepository{pool: pool}
}

// Create stages a checkout intent before the gateway redirect.
func (r *TempOrderRepository) Create(ctx context.Context, t *payment.TempOrder) error {
	items, err := json.Marshal(t.Items)
	if err != nil {
		return fmt.Errorf("encoding temp order items: %w", err)
	}
	address, err := json.Marshal(t.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encoding temp order address: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertTempOrderSQL,
		t.TranID, t.UserID, items, address, t.CouponCode, t.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("creating temp order %q: %w", t.TranID, err)
	}
	return nil
}

// DeleteOlderThan sweeps abandoned temp orders, returning the deleted count.
func (r *TempOrderRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, sweepTempOrdersSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping temp orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ConsumeTempOrder deletes and returns the staged intent in one statement
// inside the reconciliation transaction.
func (t *txn) ConsumeTempOrder(ctx context.Context, tranID string) (*payment.TempOrder, error) {
	var (
		tmp     payment.TempOrder
		items   []byte
		address []byte
	)
	err := t.tx.QueryRow(ctx, consumeTempOrderSQL, tranID).Scan(
		&tmp.TranID, &tmp.UserID, &items, &address, &tmp.CouponCode,
		&tmp.TotalPrice, &tmp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrTempOrderNotFound
		}
		return nil, fmt.Errorf("consuming temp order %q: %w", tranID, err)
	}

	if err := json.Unmarshal(items, &tmp.Items); err != nil {
		return nil, fmt.Errorf("decoding temp order items: %w", err)
	}
	if err := json.Unmarshal(address, &tmp.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decoding temp order address: %w", err)
	}
	return &tmp, nil
}

// InsertPaymentLog appends one audit row for a reconciled payment.
func (t *txn) InsertPaymentLog(ctx context.Context, l *payment.Log) error {
	_, err := t.tx.Exec(ctx, insertPaymentLogSQL,
		l.TranID, l.UserID, l.Amount, l.PaymentMethod, l.OrderID,
	)
	if err != nil {
		return fmt.Errorf("inserting payment log %q: %w", l.TranID, err)
	}
	return nil
}
