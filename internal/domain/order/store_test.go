package order

import (
	"context"
	"maps"
	"time"

	"github.com/quillcart/bookstore/internal/domain/book"
)

// fakeTx is an in-memory Tx. fakeStore snapshots it before each transaction
// and restores the snapshot on error, mimicking a database rollback.
type fakeTx struct {
	coupons    map[string]int64
	stock      map[int64]int
	orders     map[int64]*Order
	orderItems map[int64][]Item
	usage      map[[2]int64]int
	cartFull   map[int64]bool
	nextID     int64
	now        time.Time

	decrementOrder []int64
	restoreOrder   []int64

	insertItemsErr error
	restoreErr     error
	clearCartErr   error
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		coupons:    map[string]int64{},
		stock:      map[int64]int{},
		orders:     map[int64]*Order{},
		orderItems: map[int64][]Item{},
		usage:      map[[2]int64]int{},
		cartFull:   map[int64]bool{},
		nextID:     100,
		now:        time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTx) FindCouponID(_ context.Context, code string) (int64, bool, error) {
	id, ok := f.coupons[code]
	return id, ok, nil
}

func (f *fakeTx) InsertOrder(_ context.Context, o *Order) (int64, error) {
	f.nextID++
	stored := *o
	stored.ID = f.nextID
	stored.CreatedAt = f.now
	f.orders[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeTx) InsertOrderItems(_ context.Context, orderID int64, items []Item) error {
	if f.insertItemsErr != nil {
		return f.insertItemsErr
	}
	f.orderItems[orderID] = append([]Item(nil), items...)
	return nil
}

func (f *fakeTx) DecrementStock(_ context.Context, bookID int64, qty int) error {
	f.decrementOrder = append(f.decrementOrder, bookID)
	if f.stock[bookID] < qty {
		return &book.InsufficientStockError{BookID: bookID}
	}
	f.stock[bookID] -= qty
	return nil
}

func (f *fakeTx) RestoreStock(_ context.Context, bookID int64, qty int) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restoreOrder = append(f.restoreOrder, bookID)
	f.stock[bookID] += qty
	return nil
}

func (f *fakeTx) IncrementCouponUsage(_ context.Context, userID, couponID int64) error {
	f.usage[[2]int64{userID, couponID}]++
	return nil
}

func (f *fakeTx) ClearPickedItems(_ context.Context, userID int64) error {
	if f.clearCartErr != nil {
		return f.clearCartErr
	}
	delete(f.cartFull, userID)
	return nil
}

func (f *fakeTx) GetOrderForUpdate(_ context.Context, orderID int64) (*Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeTx) UpdateOrderState(_ context.Context, orderID int64, s State) error {
	o, ok := f.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.State = s
	return nil
}

func (f *fakeTx) ListOrderItems(_ context.Context, orderID int64) ([]Item, error) {
	return append([]Item(nil), f.orderItems[orderID]...), nil
}

func (f *fakeTx) snapshot() *fakeTx {
	cp := &fakeTx{
		coupons:        maps.Clone(f.coupons),
		stock:          maps.Clone(f.stock),
		orders:         map[int64]*Order{},
		orderItems:     map[int64][]Item{},
		usage:          maps.Clone(f.usage),
		cartFull:       maps.Clone(f.cartFull),
		nextID:         f.nextID,
		now:            f.now,
		decrementOrder: append([]int64(nil), f.decrementOrder...),
		restoreOrder:   append([]int64(nil), f.restoreOrder...),
	}
	for id, o := range f.orders {
		c := *o
		cp.orders[id] = &c
	}
	for id, items := range f.orderItems {
		cp.orderItems[id] = append([]Item(nil), items...)
	}
	return cp
}

func (f *fakeTx) restoreFrom(s *fakeTx) {
	f.coupons = s.coupons
	f.stock = s.stock
	f.orders = s.orders
	f.orderItems = s.orderItems
	f.usage = s.usage
	f.cartFull = s.cartFull
	f.nextID = s.nextID
}

// fakeStore runs transactions against a single fakeTx with rollback-on-error
// semantics.
type fakeStore struct {
	tx        *fakeTx
	commits   int
	rollbacks int
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	snap := s.tx.snapshot()
	if err := fn(ctx, s.tx); err != nil {
		s.tx.restoreFrom(snap)
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}
