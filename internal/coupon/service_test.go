package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type stubQueries struct {
	rule       Rule
	found      bool
	usageCount int64
	usageErr   error
}

func (s *stubQueries) GetCouponByCode(ctx context.Context, code string) (Rule, error) {
	if !s.found {
		return Rule{}, pgx.ErrNoRows
	}
	return s.rule, nil
}

func (s *stubQueries) CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	if s.usageErr != nil {
		return 0, s.usageErr
	}
	return s.usageCount, nil
}

func newRule() Rule {
	bps := int32(2000)
	cap := int64(15_000)
	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	return Rule{
		ID:          uuid.New(),
		Code:        "SAVE20",
		Kind:        KindPercent,
		PercentBps:  &bps,
		MaxDiscount: &cap,
		MinOrder:    50_000,
		ValidFrom:   &from,
		ValidTo:     &to,
		Active:      true,
	}
}

func TestEvaluateUnknownCode(t *testing.T) {
	svc := &Service{Q: &stubQueries{}}
	_, err := svc.Evaluate(context.Background(), "NOPE", uuid.New(), 100_000)
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestEvaluateEmptyCodeIsNoop(t *testing.T) {
	svc := &Service{Q: &stubQueries{}}
	res, err := svc.Evaluate(context.Background(), "  ", uuid.New(), 100_000)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if res.Applied() {
		t.Fatal("expected empty result for blank code")
	}
}

func TestEvaluateComputesCappedDiscount(t *testing.T) {
	svc := &Service{Q: &stubQueries{rule: newRule(), found: true}, DefaultPerUserLimit: 1}
	res, err := svc.Evaluate(context.Background(), "SAVE20", uuid.New(), 100_000)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Discount != 15_000 {
		t.Fatalf("expected capped discount 15000, got %d", res.Discount)
	}
	if !res.Applied() {
		t.Fatal("expected result to be applied")
	}
}

func TestEvaluatePerUserLimitFromUsageCount(t *testing.T) {
	svc := &Service{Q: &stubQueries{rule: newRule(), found: true, usageCount: 1}, DefaultPerUserLimit: 1}
	_, err := svc.Evaluate(context.Background(), "SAVE20", uuid.New(), 100_000)
	if !errors.Is(err, ErrPerUserLimitReached) {
		t.Fatalf("expected ErrPerUserLimitReached, got %v", err)
	}
}

func TestEvaluateBelowMinimum(t *testing.T) {
	svc := &Service{Q: &stubQueries{rule: newRule(), found: true}}
	_, err := svc.Evaluate(context.Background(), "SAVE20", uuid.New(), 49_000)
	if !errors.Is(err, ErrMinimumSpendUnmet) {
		t.Fatalf("expected ErrMinimumSpendUnmet, got %v", err)
	}
}
