package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillcart/bookstore/internal/domain/book"
)

func newCheckout() (*Committer, *fakeStore) {
	store := &fakeStore{tx: newFakeTx()}
	return NewCommitter(store), store
}

func TestCommit_CreatesOrderAndConsumesEverything(t *testing.T) {
	c, store := newCheckout()
	tx := store.tx
	tx.stock[1] = 5
	tx.stock[2] = 3
	tx.coupons["SUMMER20"] = 7
	tx.cartFull[42] = true

	id, err := c.Commit(context.Background(), CommitRequest{
		UserID: 42,
		Items: []Item{
			{BookID: 1, Quantity: 2},
			{BookID: 2, Quantity: 1},
		},
		ShippingAddress: Address{City: "Dhaka"},
		PaymentMethod:   MethodCashOnDelivery,
		CouponCode:      "SUMMER20",
		TotalPrice:      decimal.RequireFromString("185.00"),
	})
	require.NoError(t, err)

	o := tx.orders[id]
	require.NotNil(t, o)
	assert.Equal(t, StatePending, o.State)
	assert.Equal(t, 3, o.TotalItems)
	assert.False(t, o.IsPaid)
	assert.NotEmpty(t, o.TranID, "a tran_id is generated when the caller omits one")
	require.NotNil(t, o.CouponID)
	assert.Equal(t, int64(7), *o.CouponID)

	assert.Equal(t, 3, tx.stock[1])
	assert.Equal(t, 2, tx.stock[2])
	assert.Len(t, tx.orderItems[id], 2)
	assert.Equal(t, 1, tx.usage[[2]int64{42, 7}])
	assert.False(t, tx.cartFull[42], "cart is consumed")
	assert.Equal(t, 1, store.commits)
}

func TestCommit_EmptyItems(t *testing.T) {
	c, _ := newCheckout()

	_, err := c.Commit(context.Background(), CommitRequest{UserID: 42})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCommit_NonPositiveQuantity(t *testing.T) {
	c, _ := newCheckout()

	_, err := c.Commit(context.Background(), CommitRequest{
		UserID: 42,
		Items:  []Item{{BookID: 1, Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCommit_ShortfallRollsBackEverything(t *testing.T) {
	c, store := newCheckout()
	tx := store.tx
	tx.stock[1] = 5
	tx.stock[2] = 1
	tx.cartFull[42] = true

	_, err := c.Commit(context.Background(), CommitRequest{
		UserID: 42,
		Items: []Item{
			{BookID: 1, Quantity: 2},
			{BookID: 2, Quantity: 4},
		},
		PaymentMethod: MethodCashOnDelivery,
		TotalPrice:    decimal.NewFromInt(50),
	})

	var shortfall *book.InsufficientStockError
	require.ErrorAs(t, err, &shortfall)
	assert.Equal(t, int64(2), shortfall.BookID)

	// No partial order: every write is rolled back.
	assert.Empty(t, tx.orders)
	assert.Empty(t, tx.orderItems)
	assert.Equal(t, 5, tx.stock[1], "book 1 decrement undone")
	assert.Equal(t, 1, tx.stock[2])
	assert.True(t, tx.cartFull[42], "cart untouched")
	assert.Equal(t, 1, store.rollbacks)
}

func TestCommit_LocksStockInAscendingBookOrder(t *testing.T) {
	c, store := newCheckout()
	tx := store.tx
	tx.stock[9] = 10
	tx.stock[3] = 10
	tx.stock[5] = 10

	_, err := c.Commit(context.Background(), CommitRequest{
		UserID: 42,
		Items: []Item{
			{BookID: 9, Quantity: 1},
			{BookID: 3, Quantity: 1},
			{BookID: 5, Quantity: 1},
		},
		PaymentMethod: MethodCashOnDelivery,
		TotalPrice:    decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 9}, tx.decrementOrder)
}

func TestCommit_UnknownCouponIsIgnored(t *testing.T) {
	c, store := newCheckout()
	tx := store.tx
	tx.stock[1] = 5

	id, err := c.Commit(context.Background(), CommitRequest{
		UserID:        42,
		Items:         []Item{{BookID: 1, Quantity: 1}},
		PaymentMethod: MethodCashOnDelivery,
		CouponCode:    "GONE",
		TotalPrice:    decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	assert.Nil(t, tx.orders[id].CouponID)
	assert.Empty(t, tx.usage)
}

func TestCommit_KeepsCallerTranIDAndPaidFlag(t *testing.T) {
	c, store := newCheckout()
	tx := store.tx
	tx.stock[1] = 5

	id, err := c.Commit(context.Background(), CommitRequest{
		UserID:        42,
		Items:         []Item{{BookID: 1, Quantity: 1}},
		PaymentMethod: MethodGateway,
		TotalPrice:    decimal.NewFromInt(10),
		TranID:        "tran-abc",
		Paid:          true,
	})
	require.NoError(t, err)

	o := tx.orders[id]
	assert.Equal(t, "tran-abc", o.TranID)
	assert.True(t, o.IsPaid)
	assert.Equal(t, MethodGateway, o.PaymentMethod)
}

func TestCommit_CartClearFailureRollsBack(t *testing.T) {
	c, store := newCheckout()
	tx := store.tx
	tx.stock[1] = 5
	tx.clearCartErr = assert.AnError
	tx.cartFull[42] = true

	_, err := c.Commit(context.Background(), CommitRequest{
		UserID:        42,
		Items:         []Item{{BookID: 1, Quantity: 2}},
		PaymentMethod: MethodCashOnDelivery,
		TotalPrice:    decimal.NewFromInt(20),
	})
	require.Error(t, err)

	assert.Empty(t, tx.orders)
	assert.Equal(t, 5, tx.stock[1])
}

func TestCommit_StockConservationAcrossSequentialCommits(t *testing.T) {
	// Commits for quantities 3, 3, 3 against stock 7: the first two succeed,
	// the third fails, final stock is 1 and never negative.
	c, store := newCheckout()
	tx := store.tx
	tx.stock[1] = 7

	succeeded := 0
	for range 3 {
		_, err := c.Commit(context.Background(), CommitRequest{
			UserID:        42,
			Items:         []Item{{BookID: 1, Quantity: 3}},
			PaymentMethod: MethodCashOnDelivery,
			TotalPrice:    decimal.NewFromInt(30),
		})
		if err == nil {
			succeeded++
		} else {
			var shortfall *book.InsufficientStockError
			require.ErrorAs(t, err, &shortfall)
		}
	}

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, tx.stock[1])
	assert.GreaterOrEqual(t, tx.stock[1], 0)
}
