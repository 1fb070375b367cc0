package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotEligible is returned when no applicable coupon exists for the code.
	ErrNotEligible = errors.New("coupon not eligible")
	// ErrInactive is returned when attempting to use a coupon before its window opens.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned when the coupon window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumSpendUnmet indicates the order subtotal did not meet the coupon requirement.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
	// ErrUsageLimitReached indicates the coupon has exhausted the global usage quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached indicates the caller has exceeded the per-user allowance.
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
)

// Kind enumerates supported discount kinds.
const (
	KindPercent = "percent"
	KindFixed   = "fixed"
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	ID          uuid.UUID
	Code        string
	Kind        string
	Value       int64
	PercentBps  *int32
	MinOrder    int64
	MaxDiscount *int64
	UsageLimit  *int32
	UsedCount   int32
	PerUserMax  int32
	PerUserUsed int32
	ValidFrom   *time.Time
	ValidTo     *time.Time
	Active      bool
}

// Validate ensures the rule can be applied at the provided instant and order
// subtotal. Guards short-circuit in the order the storefront reports them.
func (r Rule) Validate(now time.Time, subtotal int64) error {
	if !r.Active {
		return ErrNotEligible
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrExpired
	}
	if subtotal < r.MinOrder {
		return ErrMinimumSpendUnmet
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	if r.PerUserMax > 0 && r.PerUserUsed >= r.PerUserMax {
		return ErrPerUserLimitReached
	}
	return nil
}

// Compute determines the discount amount for the subtotal. Percentage
// discounts are capped at MaxDiscount when set; fixed discounts never exceed
// the subtotal.
func Compute(subtotal int64, r Rule) int64 {
	if subtotal <= 0 {
		return 0
	}
	var discount int64
	switch {
	case strings.EqualFold(r.Kind, KindPercent):
		if r.PercentBps == nil || *r.PercentBps <= 0 {
			return 0
		}
		discount = subtotal * int64(*r.PercentBps) / 10000
		if r.MaxDiscount != nil && *r.MaxDiscount > 0 && discount > *r.MaxDiscount {
			discount = *r.MaxDiscount
		}
	case strings.EqualFold(r.Kind, KindFixed):
		discount = r.Value
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}
