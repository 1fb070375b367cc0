package order

import "testing"

func TestCheckInvariants(t *testing.T) {
	base := Order{
		Subtotal:       200_000,
		Taxes:          10_000,
		Shipping:       0,
		CouponDiscount: 15_000,
		WalletUsed:     50_000,
		Total:          145_000,
	}
	if !base.CheckInvariants() {
		t.Fatal("expected consistent order to pass")
	}

	broken := base
	broken.Total = 145_001
	if broken.CheckInvariants() {
		t.Fatal("arithmetic mismatch must fail")
	}

	over := base
	over.WalletUsed = 300_000
	over.Total = over.Subtotal + over.Taxes + over.Shipping - over.CouponDiscount - over.WalletUsed
	if over.CheckInvariants() {
		t.Fatal("wallet draw above payable must fail")
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range []Method{MethodGateway, MethodCOD, MethodWallet} {
		if !m.Valid() {
			t.Fatalf("%s should be valid", m)
		}
	}
	if Method("upi").Valid() {
		t.Fatal("unknown method accepted")
	}
}
