// Package payment bridges checkout and the external hosted-payment gateway.
// A Session stages a TempOrder and sends the user off-site; the Reconciler
// later turns the gateway's callbacks into exactly one committed order.
package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quillcart/bookstore/internal/domain/order"
)

var (
	// ErrGatewayInit is returned when the gateway refuses to open a hosted
	// session or returns no redirect URL.
	ErrGatewayInit = errors.New("payment gateway session init failed")
	// ErrTempOrderNotFound means the tran_id has no staged checkout intent:
	// it was already reconciled, swept, or never existed.
	ErrTempOrderNotFound = errors.New("temp order not found")
)

// TempOrder is the durable record of "checkout intent not yet committed".
// It is created before the gateway redirect and consumed exactly once by
// reconciliation; while it exists, no corresponding order does.
type TempOrder struct {
	TranID          string
	UserID          int64
	Items           []order.Item
	ShippingAddress order.Address
	CouponCode      string
	TotalPrice      decimal.Decimal
	CreatedAt       time.Time
}

// Log is one row of the append-only payment audit trail.
type Log struct {
	TranID        string
	UserID        int64
	Amount        decimal.Decimal
	PaymentMethod string
	OrderID       int64
}

// Customer carries the billing metadata the gateway requires at init.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// SessionRequest is the outbound hosted-payment request.
type SessionRequest struct {
	TranID   string
	Amount   decimal.Decimal
	Customer Customer
	Address  order.Address
}

// Gateway is the outbound client contract. Implemented by the HTTP client
// in internal/gateway and by fakes in tests.
type Gateway interface {
	// CreateSession opens a hosted payment session and returns the page URL
	// the user's browser should be redirected to.
	CreateSession(ctx context.Context, req SessionRequest) (redirectURL string, err error)
}

// TempOrderRepository persists staged checkout intents outside of the
// reconciliation transaction.
type TempOrderRepository interface {
	Create(ctx context.Context, t *TempOrder) error
	// DeleteOlderThan removes abandoned temp orders, returning the count.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Tx extends the checkout transaction with the reconciliation writes. The
// temp order consumption and the order commit share one transaction; that
// is what makes reconciliation idempotent under concurrency.
type Tx interface {
	order.Tx
	// ConsumeTempOrder deletes and returns the temp order in one statement.
	// A second consumer of the same tran_id gets ErrTempOrderNotFound.
	ConsumeTempOrder(ctx context.Context, tranID string) (*TempOrder, error)
	InsertPaymentLog(ctx context.Context, l *Log) error
}

// Store opens reconciliation transactions.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
