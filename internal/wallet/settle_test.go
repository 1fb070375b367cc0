package wallet

import "testing"

func TestSettleBoundedByPayable(t *testing.T) {
	// payable remainder 500.00, balance 800.00, requested 700.00
	if used := Settle(70_000, 80_000, 50_000); used != 50_000 {
		t.Fatalf("expected 50000, got %d", used)
	}
}

func TestSettleBoundedByBalance(t *testing.T) {
	if used := Settle(70_000, 30_000, 50_000); used != 30_000 {
		t.Fatalf("expected 30000, got %d", used)
	}
}

func TestSettleBoundedByRequest(t *testing.T) {
	if used := Settle(10_000, 80_000, 50_000); used != 10_000 {
		t.Fatalf("expected 10000, got %d", used)
	}
}

func TestSettleNeverNegative(t *testing.T) {
	if used := Settle(-5, 80_000, 50_000); used != 0 {
		t.Fatalf("expected 0 for negative request, got %d", used)
	}
	if used := Settle(10_000, 0, 50_000); used != 0 {
		t.Fatalf("expected 0 for empty balance, got %d", used)
	}
	if used := Settle(10_000, 80_000, 0); used != 0 {
		t.Fatalf("expected 0 for zero payable, got %d", used)
	}
}
