package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillcart/bookstore/internal/domain/order"
	"github.com/quillcart/bookstore/internal/domain/payment"
)

// runInTx begins a transaction, runs fn, and commits. Any error from fn
// rolls the transaction back so no partial checkout state is ever visible.
func runInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// OrderStore implements order.Store over a pgx pool.
type OrderStore struct {
	pool *pgxpool.Pool
}

var _ order.Store = (*OrderStore)(nil)

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// RunInTx runs fn inside one checkout transaction.
func (s *OrderStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return runInTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txn{tx: tx})
	})
}

// PaymentStore implements payment.Store over the same transactional state.
type PaymentStore struct {
	pool *pgxpool.Pool
}

var _ payment.Store = (*PaymentStore)(nil)

// NewPaymentStore returns a PaymentStore that uses the given pool.
func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

// RunInTx runs fn inside one reconciliation transaction.
func (s *PaymentStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx payment.Tx) error) error {
	return runInTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txn{tx: tx})
	})
}

// txn implements order.Tx and payment.Tx over one live pgx transaction.
// Its methods live next to the repositories that own the same tables.
type txn struct {
	tx pgx.Tx
}

var (
	_ order.Tx   = (*txn)(nil)
	_ payment.Tx = (*txn)(nil)
)
