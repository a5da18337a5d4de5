// Package cart manages a user's picked items: the mutable, uncommitted
// selection that checkout later turns into an order.
package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/quillcart/bookstore/internal/domain/book"
	"github.com/quillcart/bookstore/internal/domain/pricing"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrEmpty           = errors.New("cart is empty")
)

// PickedItem is one cart line. Price is not stored here; it is looked up
// live from the catalog whenever the cart is priced.
type PickedItem struct {
	UserID   int64
	BookID   int64
	Quantity int
}

// Repository defines persistence for picked items.
type Repository interface {
	List(ctx context.Context, userID int64) ([]PickedItem, error)
	// Upsert sets the quantity for (user, book), inserting the row if absent.
	Upsert(ctx context.Context, item PickedItem) error
	Remove(ctx context.Context, userID, bookID int64) error
	Clear(ctx context.Context, userID int64) error
}

// Service joins picked items with live catalog prices.
type Service struct {
	items   Repository
	catalog book.Catalog
}

// NewService creates a cart Service.
func NewService(items Repository, catalog book.Catalog) *Service {
	return &Service{items: items, catalog: catalog}
}

// Add puts qty units of a book into the user's cart, replacing any previous
// quantity for that book. The book must exist in the catalog.
func (s *Service) Add(ctx context.Context, userID, bookID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := s.catalog.GetByID(ctx, bookID); err != nil {
		return err
	}
	return s.items.Upsert(ctx, PickedItem{UserID: userID, BookID: bookID, Quantity: qty})
}

// Remove drops one book from the cart.
func (s *Service) Remove(ctx context.Context, userID, bookID int64) error {
	return s.items.Remove(ctx, userID, bookID)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.items.Clear(ctx, userID)
}

// Quote prices the user's current cart. Returns ErrEmpty for an empty cart
// so callers can distinguish "nothing to price" from a zero total.
func (s *Service) Quote(ctx context.Context, userID int64) (pricing.Quote, error) {
	items, err := s.items.List(ctx, userID)
	if err != nil {
		return pricing.Quote{}, errors.Wrap(err, "list picked items")
	}
	if len(items) == 0 {
		return pricing.Quote{}, ErrEmpty
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.BookID
	}
	books, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return pricing.Quote{}, errors.Wrap(err, "fetch books")
	}

	byID := make(map[int64]book.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		b, ok := byID[it.BookID]
		if !ok {
			return pricing.Quote{}, errors.Wrapf(book.ErrNotFound, "book %d", it.BookID)
		}
		lines = append(lines, pricing.Line{
			BookID:          b.ID,
			Price:           b.Price,
			DiscountPercent: b.DiscountPercent,
			Quantity:        it.Quantity,
		})
	}

	return pricing.Calculate(lines), nil
}
