package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (Rule, error)
	CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
}

// Result describes the outcome of evaluating a coupon without mutating state.
// The composer persists Discount on the order and records usage against
// CouponID at commit time.
type Result struct {
	CouponID   uuid.UUID
	Code       string
	Discount   int64
	PerUserMax int32
}

// Applied reports whether the evaluation produced a usable discount.
func (r Result) Applied() bool {
	return r.CouponID != uuid.Nil && r.Discount > 0
}

// Service evaluates coupon rules against a checkout context. The per-user
// count read here is advisory; the binding enforcement is the guarded usage
// insert inside the order commit transaction.
type Service struct {
	Q                   Querier
	Now                 func() time.Time
	DefaultPerUserLimit int
}

// Evaluate validates the code and computes the bounded discount for the
// subtotal. An empty code yields a zero Result with no error.
func (s *Service) Evaluate(ctx context.Context, code string, userID uuid.UUID, subtotal int64) (Result, error) {
	if s == nil || s.Q == nil {
		return Result{}, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Result{}, nil
	}
	rule, err := s.Q.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrNotEligible
		}
		return Result{}, fmt.Errorf("lookup coupon: %w", err)
	}
	if rule.PerUserMax <= 0 && s.DefaultPerUserLimit > 0 {
		rule.PerUserMax = int32(s.DefaultPerUserLimit)
	}
	if rule.PerUserMax > 0 && userID != uuid.Nil {
		used, err := s.Q.CountUsageByUser(ctx, rule.ID, userID)
		if err != nil {
			return Result{}, fmt.Errorf("count coupon usage: %w", err)
		}
		rule.PerUserUsed = int32(used)
	}
	if err := rule.Validate(s.now(), subtotal); err != nil {
		return Result{}, err
	}
	discount := Compute(subtotal, rule)
	if discount <= 0 {
		return Result{}, ErrNotEligible
	}
	return Result{CouponID: rule.ID, Code: rule.Code, Discount: discount, PerUserMax: rule.PerUserMax}, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
