package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillcart/bookstore/internal/domain/cart"
)

const (
	listPickedItemsSQL = `SELECT user_id, book_id, quantity
		FROM picked_items WHERE user_id = $1 ORDER BY book_id`

	upsertPickedItemSQL = `INSERT INTO picked_items (user_id, book_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, book_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	removePickedItemSQL = `DELETE FROM picked_items WHERE user_id = $1 AND book_id = $2`

	clearPickedItemsSQL = `DELETE FROM picked_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// List returns the user's picked items ordered by book id.
func (r *CartRepository) List(ctx context.Context, userID int64) ([]cart.PickedItem, error) {
	rows, err := r.pool.Query(ctx, listPickedItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing picked items for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.PickedItem, error) {
		var it cart.PickedItem
		err := row.Scan(&it.UserID, &it.BookID, &it.Quantity)
		return it, err
	})
}

// Upsert sets the quantity for (user, book).
func (r *CartRepository) Upsert(ctx context.Context, item cart.PickedItem) error {
	_, err := r.pool.Exec(ctx, upsertPickedItemSQL, item.UserID, item.BookID, item.Quantity)
	if err != nil {
		return fmt.Errorf("upserting picked item: %w", err)
	}
	return nil
}

// Remove drops one book from the user's cart.
func (r *CartRepository) Remove(ctx context.Context, userID, bookID int64) error {
	_, err := r.pool.Exec(ctx, removePickedItemSQL, userID, bookID)
	if err != nil {
		return fmt.Errorf("removing picked item: %w", err)
	}
	return nil
}

// Clear empties the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, clearPickedItemsSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return nil
}

// ClearPickedItems consumes the cart inside the commit transaction.
func (t *txn) ClearPickedItems(ctx context.Context, userID int64) error {
	_, err := t.tx.Exec(ctx, clearPickedItemsSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return nil
}
