// Package book exposes the read-only catalog contract and the stock ledger
// contract. The checkout engine never touches a book row except through
// these interfaces; the stock column in particular changes only via Ledger.
package book

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested book does not exist.
var ErrNotFound = errors.New("book not found")

// Book is the catalog record the engine reads prices and stock from.
type Book struct {
	ID              int64
	Title           string
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	Stock           int
}

// InsufficientStockError reports the first book in a batch whose available
// stock is below the requested quantity.
type InsufficientStockError struct {
	BookID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d", e.BookID)
}

// Catalog provides read access to books.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Book, error)
}

// Ledger adjusts stock inside an enclosing transaction. Decrement takes a
// per-row write lock, compares, then writes, so concurrent commits against
// the same book serialize instead of both reading stale stock. Callers must
// acquire locks in ascending book id order to avoid deadlocks.
type Ledger interface {
	// Decrement reduces stock for one book, failing with
	// *InsufficientStockError when fewer than qty units are available.
	Decrement(ctx context.Context, bookID int64, qty int) error
	// Restore unconditionally adds qty units back. Used by cancellation.
	Restore(ctx context.Context, bookID int64, qty int) error
}
