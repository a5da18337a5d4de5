package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillcart/bookstore/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, percentage_discount, amount_discount,
		maximum_discount, min_order_amount, valid_from, valid_until, usage_limit
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	getUserCouponSQL = `SELECT user_id, coupon_id, used_count
		FROM user_coupons WHERE user_id = $1 AND coupon_id = $2`

	findCouponIDSQL = `SELECT id FROM coupons WHERE UPPER(code) = UPPER($1)`

	incrementUserCouponSQL = `UPDATE user_coupons SET used_count = used_count + 1
		WHERE user_id = $1 AND coupon_id = $2`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Codes are matched case-insensitively.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code. Returns coupon.ErrNotFound when
// no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// GetUserCoupon returns the (user, coupon) assignment row. Returns
// coupon.ErrNotEligible when the row is absent.
func (r *CouponRepository) GetUserCoupon(ctx context.Context, userID, couponID int64) (*coupon.UserCoupon, error) {
	var uc coupon.UserCoupon
	err := r.pool.QueryRow(ctx, getUserCouponSQL, userID, couponID).
		Scan(&uc.UserID, &uc.CouponID, &uc.UsedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotEligible
		}
		return nil, fmt.Errorf("getting user coupon (%d, %d): %w", userID, couponID, err)
	}
	return &uc, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.PercentageDiscount, &c.AmountDiscount,
		&c.MaximumDiscount, &c.MinOrderAmount, &c.ValidFrom, &c.ValidUntil,
		&c.UsageLimit,
	)
	return c, err
}

// FindCouponID resolves a code to its id inside the commit transaction.
func (t *txn) FindCouponID(ctx context.Context, code string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, findCouponIDSQL, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolving coupon code %q: %w", code, err)
	}
	return id, true, nil
}

// IncrementCouponUsage counts one use of an applied coupon. Runs inside the
// commit transaction so an aborted order never consumes a use.
func (t *txn) IncrementCouponUsage(ctx context.Context, userID, couponID int64) error {
	_, err := t.tx.Exec(ctx, incrementUserCouponSQL, userID, couponID)
	if err != nil {
		return fmt.Errorf("incrementing coupon usage (%d, %d): %w", userID, couponID, err)
	}
	return nil
}
