// Package order holds the order model and the two write paths that touch it:
// the Committer, the single choke point through which every order is created,
// and the Lifecycle, the state machine governing post-creation transitions.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quillcart/bookstore/internal/domain/cart"
)

// Payment methods an order can carry. Gateway orders are created by the
// payment reconciler and cannot be self-cancelled.
const (
	MethodCashOnDelivery = "cod"
	MethodGateway        = "gateway"
)

// State is the order lifecycle state.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateShipped    State = "shipped"
	StateDelivered  State = "delivered"
	StateCancelled  State = "cancelled"
	StateReturned   State = "returned"
)

// ParseState maps a state name to its State, reporting whether it is known.
func ParseState(s string) (State, bool) {
	switch State(s) {
	case StatePending, StateProcessing, StateShipped, StateDelivered, StateCancelled, StateReturned:
		return State(s), true
	}
	return "", false
}

// Terminal reports whether no further transitions are permitted from s.
// Re-requesting the same terminal state is rejected too, not treated as a
// no-op.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateCancelled
}

// Address is the structured shipping address, serialized as JSON on the
// order row.
type Address struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	PostCode string `json:"post_code"`
	Country  string `json:"country"`
}

// Item is one purchased line, snapshotted at commit time and never mutated.
type Item struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

// Order is a committed, priced, inventory-backed purchase record. Only the
// Committer creates it and only the Lifecycle mutates its state.
type Order struct {
	ID              int64
	UserID          int64
	CouponID        *int64
	TotalPrice      decimal.Decimal
	TotalItems      int
	ShippingAddress Address
	PaymentMethod   string
	TranID          string
	IsPaid          bool
	State           State
	CreatedAt       time.Time
	Items           []Item
}

// Not-found and lifecycle rejection reasons.
var (
	ErrNotFound                  = errors.New("order not found")
	ErrNotAuthorized             = errors.New("order does not belong to this user")
	ErrInvalidState              = errors.New("unrecognized order state")
	ErrCancelledOrderImmutable   = errors.New("cancelled order cannot change state")
	ErrDeliveredOrderImmutable   = errors.New("delivered order cannot change state")
	ErrAlreadyCancelled          = errors.New("order is already cancelled")
	ErrCannotCancelPaidOrder     = errors.New("paid or gateway orders cannot be cancelled")
	ErrInvalidStateForCancel     = errors.New("order state does not permit cancellation")
	ErrCancellationWindowExpired = errors.New("cancellation window has expired")
)

// Tx is the set of operations available inside one checkout transaction. The
// postgres layer implements it over a live pgx transaction; tests implement
// it in memory.
type Tx interface {
	// FindCouponID resolves a code to a coupon id; found=false when absent.
	FindCouponID(ctx context.Context, code string) (id int64, found bool, err error)
	InsertOrder(ctx context.Context, o *Order) (int64, error)
	InsertOrderItems(ctx context.Context, orderID int64, items []Item) error
	// DecrementStock fails with *book.InsufficientStockError on shortfall.
	DecrementStock(ctx context.Context, bookID int64, qty int) error
	RestoreStock(ctx context.Context, bookID int64, qty int) error
	IncrementCouponUsage(ctx context.Context, userID, couponID int64) error
	ClearPickedItems(ctx context.Context, userID int64) error

	// GetOrderForUpdate loads an order under a row lock, ErrNotFound if absent.
	GetOrderForUpdate(ctx context.Context, orderID int64) (*Order, error)
	UpdateOrderState(ctx context.Context, orderID int64, s State) error
	ListOrderItems(ctx context.Context, orderID int64) ([]Item, error)
}

// Store opens checkout transactions. Any error returned by fn rolls the
// whole transaction back; nothing partial is ever observable.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Reader provides the read-only order queries used by the HTTP surface.
type Reader interface {
	GetByID(ctx context.Context, orderID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
}

// CommitRequest is the input to Committer.Commit.
type CommitRequest struct {
	UserID          int64
	Items           []Item
	ShippingAddress Address
	PaymentMethod   string
	CouponCode      string
	TotalPrice      decimal.Decimal
	TranID          string
	Paid            bool
}

// Validation errors shared by the commit entry points.
var (
	ErrEmptyItems      = cart.ErrEmpty
	ErrInvalidQuantity = cart.ErrInvalidQuantity
)
