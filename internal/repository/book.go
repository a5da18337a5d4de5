package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillcart/bookstore/internal/domain/book"
)

const (
	getBookByIDSQL = `SELECT id, title, price, discount_percent, stock
		FROM books WHERE id = $1`

	getBooksByIDsSQL = `SELECT id, title, price, discount_percent, stock
		FROM books WHERE id = ANY($1) ORDER BY id`

	lockBookStockSQL = `SELECT stock FROM books WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE books SET stock = stock - $2 WHERE id = $1`

	restoreStockSQL = `UPDATE books SET stock = stock + $2 WHERE id = $1`
)

var _ book.Catalog = (*BookRepository)(nil)

// BookRepository implements the read-only book.Catalog backed by PostgreSQL.
// Stock writes are transaction-scoped and live on txn below.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// GetByID returns a single book by its identifier.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	rows, err := r.pool.Query(ctx, getBookByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting book %d: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("getting book %d: %w", id, err)
	}
	return &b, nil
}

// GetByIDs returns books matching any of the given IDs.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []int64) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, getBooksByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting books by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

func scanBook(row pgx.CollectableRow) (book.Book, error) {
	var b book.Book
	err := row.Scan(&b.ID, &b.Title, &b.Price, &b.DiscountPercent, &b.Stock)
	return b, err
}

// DecrementStock reads the current stock under a row write lock, compares,
// and writes. Two transactions decrementing the same book serialize on the
// lock, which is what keeps stock from going negative under concurrency.
func (t *txn) DecrementStock(ctx context.Context, bookID int64, qty int) error {
	var stock int
	err := t.tx.QueryRow(ctx, lockBookStockSQL, bookID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return book.ErrNotFound
		}
		return fmt.Errorf("locking stock for book %d: %w", bookID, err)
	}

	if stock < qty {
		return &book.InsufficientStockError{BookID: bookID}
	}

	if _, err := t.tx.Exec(ctx, decrementStockSQL, bookID, qty); err != nil {
		return fmt.Errorf("decrementing stock for book %d: %w", bookID, err)
	}
	return nil
}

// RestoreStock unconditionally adds units back. No contention check needed:
// an increment cannot violate the non-negative invariant.
func (t *txn) RestoreStock(ctx context.Context, bookID int64, qty int) error {
	if _, err := t.tx.Exec(ctx, restoreStockSQL, bookID, qty); err != nil {
		return fmt.Errorf("restoring stock for book %d: %w", bookID, err)
	}
	return nil
}
