package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-adorn/internal/coupon"
)

// Coupons reads coupon rules for evaluation. Usage records are written by the
// order commit transaction, not here.
type Coupons struct {
	Pool *pgxpool.Pool
}

// GetCouponByCode returns the rule for a code. pgx.ErrNoRows passes through
// so the service can map it to a business rejection.
func (r Coupons) GetCouponByCode(ctx context.Context, code string) (coupon.Rule, error) {
	var rule coupon.Rule
	err := r.Pool.QueryRow(ctx, `
		SELECT id, code, kind, value, percent_bps, min_order, max_discount,
		       usage_limit, used_count, per_user_limit, valid_from, valid_to, active
		FROM coupons
		WHERE code = $1`, code).Scan(
		&rule.ID, &rule.Code, &rule.Kind, &rule.Value, &rule.PercentBps,
		&rule.MinOrder, &rule.MaxDiscount, &rule.UsageLimit, &rule.UsedCount,
		&rule.PerUserMax, &rule.ValidFrom, &rule.ValidTo, &rule.Active,
	)
	if err != nil {
		return coupon.Rule{}, err
	}
	return rule, nil
}

// CountUsageByUser counts existing usage records for (coupon, user).
func (r Coupons) CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.Pool.QueryRow(ctx, `
		SELECT count(*) FROM coupon_usages
		WHERE coupon_id = $1 AND user_id = $2`, couponID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}
	return count, nil
}
