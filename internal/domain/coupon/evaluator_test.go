package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillcart/bookstore/internal/domain/cart"
	"github.com/quillcart/bookstore/internal/domain/pricing"
)

type mockCouponRepo struct {
	coupon     *Coupon
	userCoupon *UserCoupon
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*Coupon, error) {
	if m.coupon == nil {
		return nil, ErrNotFound
	}
	return m.coupon, nil
}

func (m *mockCouponRepo) GetUserCoupon(_ context.Context, _, _ int64) (*UserCoupon, error) {
	if m.userCoupon == nil {
		return nil, ErrNotEligible
	}
	return m.userCoupon, nil
}

type mockCartPricer struct {
	subtotal decimal.Decimal
	err      error
}

func (m *mockCartPricer) Quote(_ context.Context, _ int64) (pricing.Quote, error) {
	if m.err != nil {
		return pricing.Quote{}, m.err
	}
	return pricing.Quote{ItemsSubtotal: m.subtotal}, nil
}

func newEvaluatorAt(t *testing.T, repo *mockCouponRepo, carts *mockCartPricer, now time.Time) *Evaluator {
	t.Helper()
	e := NewEvaluator(repo, carts)
	e.now = func() time.Time { return now }
	return e
}

func intPtr(v int) *int { return &v }

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	valid := Coupon{
		ID:                 7,
		Code:               "SUMMER20",
		PercentageDiscount: decimal.NewFromInt(20),
		AmountDiscount:     decimal.NewFromInt(5),
		MaximumDiscount:    decimal.NewFromInt(30),
		ValidFrom:          now.Add(-24 * time.Hour),
		ValidUntil:         now.Add(24 * time.Hour),
	}

	tests := []struct {
		name         string
		repo         *mockCouponRepo
		carts        *mockCartPricer
		wantErr      error
		wantDiscount string
		wantNewTotal string
	}{
		{
			name:    "empty cart",
			repo:    &mockCouponRepo{coupon: &valid, userCoupon: &UserCoupon{}},
			carts:   &mockCartPricer{err: cart.ErrEmpty},
			wantErr: ErrEmptyCart,
		},
		{
			name:    "unknown code",
			repo:    &mockCouponRepo{},
			carts:   &mockCartPricer{subtotal: decimal.NewFromInt(100)},
			wantErr: ErrNotFound,
		},
		{
			name: "not yet valid",
			repo: &mockCouponRepo{
				coupon: func() *Coupon {
					c := valid
					c.ValidFrom = now.Add(time.Hour)
					return &c
				}(),
				userCoupon: &UserCoupon{},
			},
			carts:   &mockCartPricer{subtotal: decimal.NewFromInt(100)},
			wantErr: ErrExpired,
		},
		{
			name: "expired",
			repo: &mockCouponRepo{
				coupon: func() *Coupon {
					c := valid
					c.ValidUntil = now.Add(-time.Hour)
					return &c
				}(),
				userCoupon: &UserCoupon{},
			},
			carts:   &mockCartPricer{subtotal: decimal.NewFromInt(100)},
			wantErr: ErrExpired,
		},
		{
			name: "minimum order not met",
			repo: &mockCouponRepo{
				coupon: func() *Coupon {
					c := valid
					c.MinOrderAmount = decimal.NewFromInt(500)
					return &c
				}(),
				userCoupon: &UserCoupon{},
			},
			carts:   &mockCartPricer{subtotal: decimal.NewFromInt(100)},
			wantErr: ErrMinimumOrderNotMet,
		},
		{
			name:    "no assignment row means not eligible",
			repo:    &mockCouponRepo{coupon: &valid},
			carts:   &mockCartPricer{subtotal: decimal.NewFromInt(100)},
			wantErr: ErrNotEligible,
		},
		{
			name: "usage limit reached",
			repo: &mockCouponRepo{
				coupon: func() *Coupon {
					c := valid
					c.UsageLimit = intPtr(1)
					return &c
				}(),
				userCoupon: &UserCoupon{UsedCount: 1},
			},
			carts:   &mockCartPricer{subtotal: decimal.NewFromInt(100)},
			wantErr: ErrUsageLimitReached,
		},
		{
			name:         "discount capped at maximum",
			repo:         &mockCouponRepo{coupon: &valid, userCoupon: &UserCoupon{}},
			carts:        &mockCartPricer{subtotal: decimal.NewFromInt(200)},
			wantDiscount: "30",   // 20% of 200 = 40, +5 = 45, capped at 30
			wantNewTotal: "170",
		},
		{
			name: "uncapped discount",
			repo: &mockCouponRepo{
				coupon: func() *Coupon {
					c := valid
					c.MaximumDiscount = decimal.Zero
					return &c
				}(),
				userCoupon: &UserCoupon{},
			},
			carts:        &mockCartPricer{subtotal: decimal.NewFromInt(200)},
			wantDiscount: "45",
			wantNewTotal: "155",
		},
		{
			name: "discount never exceeds subtotal",
			repo: &mockCouponRepo{
				coupon: func() *Coupon {
					c := valid
					c.AmountDiscount = decimal.NewFromInt(500)
					c.MaximumDiscount = decimal.Zero
					return &c
				}(),
				userCoupon: &UserCoupon{},
			},
			carts:        &mockCartPricer{subtotal: decimal.NewFromInt(100)},
			wantDiscount: "100",
			wantNewTotal: "0",
		},
		{
			name: "limit below usage allows reuse",
			repo: &mockCouponRepo{
				coupon: func() *Coupon {
					c := valid
					c.UsageLimit = intPtr(3)
					return &c
				}(),
				userCoupon: &UserCoupon{UsedCount: 2},
			},
			carts:        &mockCartPricer{subtotal: decimal.NewFromInt(200)},
			wantDiscount: "30",
			wantNewTotal: "170",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEvaluatorAt(t, tt.repo, tt.carts, now)

			got, err := e.Evaluate(context.Background(), 42, "SUMMER20")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantDiscount).Equal(got.Discount),
				"discount = %s", got.Discount)
			assert.True(t, decimal.RequireFromString(tt.wantNewTotal).Equal(got.NewTotal),
				"new total = %s", got.NewTotal)
		})
	}
}

func TestEvaluate_DoesNotCountUsage(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockCouponRepo{
		coupon: &Coupon{
			ID:                 1,
			Code:               "KEEP",
			PercentageDiscount: decimal.NewFromInt(10),
			ValidFrom:          now.Add(-time.Hour),
			ValidUntil:         now.Add(time.Hour),
			UsageLimit:         intPtr(1),
		},
		userCoupon: &UserCoupon{UsedCount: 0},
	}
	e := newEvaluatorAt(t, repo, &mockCartPricer{subtotal: decimal.NewFromInt(50)}, now)

	// Two validations in a row both succeed: evaluation alone must not
	// consume the single allowed use.
	for range 2 {
		_, err := e.Evaluate(context.Background(), 42, "KEEP")
		require.NoError(t, err)
	}
}
