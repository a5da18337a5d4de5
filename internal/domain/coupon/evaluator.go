package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quillcart/bookstore/internal/domain/cart"
	"github.com/quillcart/bookstore/internal/domain/pricing"
)

var hundred = decimal.NewFromInt(100)

// CartPricer prices a user's current cart. Implemented by cart.Service.
type CartPricer interface {
	Quote(ctx context.Context, userID int64) (pricing.Quote, error)
}

// Evaluator validates a coupon code against a user's cart and eligibility.
// Evaluation never increments usage: a validated-but-abandoned coupon check
// costs nothing. Usage is counted at order commit.
type Evaluator struct {
	coupons Repository
	carts   CartPricer
	now     func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given repository and cart
// pricer.
func NewEvaluator(coupons Repository, carts CartPricer) *Evaluator {
	return &Evaluator{coupons: coupons, carts: carts, now: time.Now}
}

// Evaluate runs the gates in order and returns the discount breakdown. Each
// gate maps to its own sentinel so the caller can report a precise reason.
func (e *Evaluator) Evaluate(ctx context.Context, userID int64, code string) (*Breakdown, error) {
	quote, err := e.carts.Quote(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrEmpty) {
			return nil, ErrEmptyCart
		}
		return nil, errors.Wrap(err, "price cart")
	}
	subtotal := quote.ItemsSubtotal

	c, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := e.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return nil, ErrExpired
	}

	if c.MinOrderAmount.IsPositive() && subtotal.LessThan(c.MinOrderAmount) {
		return nil, ErrMinimumOrderNotMet
	}

	uc, err := e.coupons.GetUserCoupon(ctx, userID, c.ID)
	if err != nil {
		if errors.Is(err, ErrNotEligible) {
			return nil, ErrNotEligible
		}
		return nil, errors.Wrap(err, "lookup user coupon")
	}

	if c.UsageLimit != nil && uc.UsedCount >= *c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	return apply(c, subtotal), nil
}

// apply computes the discount: percentage plus fixed amount, capped at the
// coupon's maximum when one is set, and never exceeding the subtotal.
func apply(c *Coupon, subtotal decimal.Decimal) *Breakdown {
	discount := subtotal.Mul(c.PercentageDiscount).Div(hundred).Add(c.AmountDiscount)
	if c.MaximumDiscount.IsPositive() {
		discount = decimal.Min(discount, c.MaximumDiscount)
	}
	discount = decimal.Min(discount, subtotal).Round(2)

	return &Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		NewTotal: subtotal.Sub(discount).Round(2),
	}
}
