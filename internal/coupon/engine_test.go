package coupon

import (
	"errors"
	"testing"
	"time"
)

func TestComputePercentCapped(t *testing.T) {
	// SAVE20: 20% off, capped at 150.00, minimum order 500.00
	bps := int32(2000)
	cap := int64(15_000)
	rule := Rule{Kind: KindPercent, PercentBps: &bps, MaxDiscount: &cap, MinOrder: 50_000, Active: true}

	discount := Compute(100_000, rule)
	if discount != 15_000 {
		t.Fatalf("expected raw 20000 capped to 15000, got %d", discount)
	}
}

func TestComputePercentUncapped(t *testing.T) {
	bps := int32(1000)
	rule := Rule{Kind: KindPercent, PercentBps: &bps, Active: true}
	if discount := Compute(100_000, rule); discount != 10_000 {
		t.Fatalf("expected 10000, got %d", discount)
	}
}

func TestComputeFixedNeverExceedsSubtotal(t *testing.T) {
	rule := Rule{Kind: KindFixed, Value: 50_000, Active: true}
	if discount := Compute(20_000, rule); discount != 20_000 {
		t.Fatalf("expected discount bounded by subtotal, got %d", discount)
	}
}

func TestValidateWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	rule := Rule{Active: true, ValidFrom: &future}
	if err := rule.Validate(now, 10_000); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}

	rule = Rule{Active: true, ValidFrom: &past, ValidTo: &past}
	if err := rule.Validate(now, 10_000); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	rule = Rule{Active: false}
	if err := rule.Validate(now, 10_000); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestValidateMinimumSpend(t *testing.T) {
	rule := Rule{Active: true, MinOrder: 50_000}
	if err := rule.Validate(time.Now(), 49_999); !errors.Is(err, ErrMinimumSpendUnmet) {
		t.Fatalf("expected ErrMinimumSpendUnmet, got %v", err)
	}
	if err := rule.Validate(time.Now(), 50_000); err != nil {
		t.Fatalf("expected subtotal at minimum to pass, got %v", err)
	}
}

func TestValidateUsageLimits(t *testing.T) {
	limit := int32(100)
	rule := Rule{Active: true, UsageLimit: &limit, UsedCount: 100}
	if err := rule.Validate(time.Now(), 10_000); !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}

	rule = Rule{Active: true, PerUserMax: 1, PerUserUsed: 1}
	if err := rule.Validate(time.Now(), 10_000); !errors.Is(err, ErrPerUserLimitReached) {
		t.Fatalf("expected ErrPerUserLimitReached, got %v", err)
	}
}
