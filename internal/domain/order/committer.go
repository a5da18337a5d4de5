package order

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Committer turns a cart snapshot into a durable order. It is
// transport-agnostic: the POST /orders handler and the payment reconciler
// both call it, the latter from inside its own reconciliation transaction.
type Committer struct {
	store Store
}

// NewCommitter creates a Committer over the given transactional store.
func NewCommitter(store Store) *Committer {
	return &Committer{store: store}
}

// Commit runs CommitIn inside a fresh transaction and returns the new order
// id. Any step failure rolls back the order row, order items, stock
// decrements, coupon usage increment, and cart deletion together.
func (c *Committer) Commit(ctx context.Context, req CommitRequest) (int64, error) {
	var orderID int64
	err := c.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		id, err := c.CommitIn(ctx, tx, req)
		if err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// CommitIn performs the commit steps inside an existing transaction so the
// payment reconciler can combine them with its own writes. Steps: resolve
// the coupon (best-effort), insert the pending order, decrement stock in
// ascending book-id order, snapshot the items, count the coupon use, and
// consume the cart.
func (c *Committer) CommitIn(ctx context.Context, tx Tx, req CommitRequest) (int64, error) {
	if len(req.Items) == 0 {
		return 0, ErrEmptyItems
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return 0, ErrInvalidQuantity
		}
	}

	// The code was validated earlier in the user-facing step; an unknown
	// code here is recorded as "no coupon" rather than failing the order.
	var couponID *int64
	if req.CouponCode != "" {
		id, found, err := tx.FindCouponID(ctx, req.CouponCode)
		if err != nil {
			return 0, errors.Wrap(err, "resolve coupon")
		}
		if found {
			couponID = &id
		}
	}

	tranID := req.TranID
	if tranID == "" {
		tranID = uuid.New().String()
	}

	totalItems := 0
	for _, it := range req.Items {
		totalItems += it.Quantity
	}

	orderID, err := tx.InsertOrder(ctx, &Order{
		UserID:          req.UserID,
		CouponID:        couponID,
		TotalPrice:      req.TotalPrice,
		TotalItems:      totalItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TranID:          tranID,
		IsPaid:          req.Paid,
		State:           StatePending,
	})
	if err != nil {
		return 0, errors.Wrap(err, "insert order")
	}

	// Lock and decrement stock in ascending book id order so concurrent
	// commits touching the same books cannot deadlock.
	items := make([]Item, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].BookID < items[j].BookID })

	for _, it := range items {
		if err := tx.DecrementStock(ctx, it.BookID, it.Quantity); err != nil {
			return 0, err
		}
	}

	if err := tx.InsertOrderItems(ctx, orderID, req.Items); err != nil {
		return 0, errors.Wrap(err, "insert order items")
	}

	if couponID != nil {
		if err := tx.IncrementCouponUsage(ctx, req.UserID, *couponID); err != nil {
			return 0, errors.Wrap(err, "increment coupon usage")
		}
	}

	if err := tx.ClearPickedItems(ctx, req.UserID); err != nil {
		return 0, errors.Wrap(err, "clear cart")
	}

	return orderID, nil
}
