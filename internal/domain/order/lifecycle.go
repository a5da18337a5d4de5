package order

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
)

// CancellationWindow is how long after creation an unpaid, non-gateway order
// may be self-cancelled by its owner.
const CancellationWindow = 6 * time.Hour

// Transition reports the result of an admin state change.
type Transition struct {
	OrderID  int64
	Previous State
	Current  State
}

// Lifecycle governs post-creation state transitions.
type Lifecycle struct {
	store Store
	now   func() time.Time
}

// NewLifecycle creates a Lifecycle over the given transactional store.
func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{store: store, now: time.Now}
}

// SetState applies an admin-driven transition. Terminal states reject every
// request, including a redundant repeat of the terminal state itself.
func (l *Lifecycle) SetState(ctx context.Context, orderID int64, target string) (*Transition, error) {
	next, ok := ParseState(target)
	if !ok {
		return nil, ErrInvalidState
	}

	var tr *Transition
	err := l.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		switch o.State {
		case StateCancelled:
			return ErrCancelledOrderImmutable
		case StateDelivered:
			return ErrDeliveredOrderImmutable
		}

		if err := tx.UpdateOrderState(ctx, orderID, next); err != nil {
			return errors.Wrap(err, "update state")
		}

		tr = &Transition{OrderID: orderID, Previous: o.State, Current: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Cancel is the bounded user-initiated cancellation. The state change and
// every compensating restock happen in one transaction: a failure restocking
// one item rolls back the cancellation entirely instead of silently skipping
// the rest.
func (l *Lifecycle) Cancel(ctx context.Context, orderID, userID int64) error {
	return l.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotAuthorized
		}
		if o.State == StateCancelled {
			return ErrAlreadyCancelled
		}
		// Gateway payments are irreversible through this path.
		if o.IsPaid || o.PaymentMethod == MethodGateway {
			return ErrCannotCancelPaidOrder
		}
		if o.State != StatePending && o.State != StateProcessing {
			return ErrInvalidStateForCancel
		}
		if l.now().Sub(o.CreatedAt) > CancellationWindow {
			return ErrCancellationWindowExpired
		}

		if err := tx.UpdateOrderState(ctx, orderID, StateCancelled); err != nil {
			return errors.Wrap(err, "update state")
		}

		items, err := tx.ListOrderItems(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "list order items")
		}
		sort.Slice(items, func(i, j int) bool { return items[i].BookID < items[j].BookID })
		for _, it := range items {
			if err := tx.RestoreStock(ctx, it.BookID, it.Quantity); err != nil {
				return errors.Wrapf(err, "restore stock for book %d", it.BookID)
			}
		}
		return nil
	})
}
