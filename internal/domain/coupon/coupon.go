// Package coupon implements checkout-time coupon evaluation: the discount
// math and the eligibility gates. Coupon creation and assignment are managed
// elsewhere; this package only reads them.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluation rejection reasons, one per gate, in the order the gates run.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotFound           = errors.New("coupon not found")
	ErrExpired            = errors.New("coupon expired")
	ErrMinimumOrderNotMet = errors.New("minimum order amount not met")
	ErrNotEligible        = errors.New("user is not eligible for this coupon")
	ErrUsageLimitReached  = errors.New("coupon usage limit reached")
)

// Coupon is an immutable discount rule. UsageLimit nil means unlimited.
type Coupon struct {
	ID                 int64
	Code               string
	PercentageDiscount decimal.Decimal
	AmountDiscount     decimal.Decimal
	MaximumDiscount    decimal.Decimal
	MinOrderAmount     decimal.Decimal
	ValidFrom          time.Time
	ValidUntil         time.Time
	UsageLimit         *int
}

// UserCoupon is the (user, coupon) assignment row. Its existence is the sole
// eligibility gate; UsedCount increments once per committed order that
// applies the coupon.
type UserCoupon struct {
	UserID    int64
	CouponID  int64
	UsedCount int
}

// Breakdown is the result of a successful evaluation.
type Breakdown struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	NewTotal decimal.Decimal
}

// Repository provides read access to coupons and per-user assignments.
type Repository interface {
	// FindByCode returns ErrNotFound when no coupon has the given code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// GetUserCoupon returns ErrNotEligible when the (user, coupon) row is absent.
	GetUserCoupon(ctx context.Context, userID, couponID int64) (*UserCoupon, error)
}
