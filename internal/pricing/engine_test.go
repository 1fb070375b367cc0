package pricing

import "testing"

func TestPriceSingleSlab(t *testing.T) {
	// cart subtotal 2000.00 with a single 5% slab
	summary := Price([]Line{
		{Qty: 2, UnitPrice: 50_000, TaxRateBps: 500},
		{Qty: 1, UnitPrice: 100_000, TaxRateBps: 500},
	})
	if summary.Subtotal != 200_000 {
		t.Fatalf("expected subtotal 200000, got %d", summary.Subtotal)
	}
	if summary.Taxes != 10_000 {
		t.Fatalf("expected taxes 10000, got %d", summary.Taxes)
	}
	if summary.TaxBreakdown[500] != 10_000 {
		t.Fatalf("expected 5%% slab 10000, got %d", summary.TaxBreakdown[500])
	}
}

func TestPriceMixedSlabs(t *testing.T) {
	summary := Price([]Line{
		{Qty: 1, UnitPrice: 100_000, TaxRateBps: 500},
		{Qty: 1, UnitPrice: 50_000, TaxRateBps: 1200},
		{Qty: 1, UnitPrice: 10_000},
	})
	if summary.Subtotal != 160_000 {
		t.Fatalf("expected subtotal 160000, got %d", summary.Subtotal)
	}
	if summary.TaxBreakdown[500] != 5_000 {
		t.Fatalf("expected 5%% slab 5000, got %d", summary.TaxBreakdown[500])
	}
	if summary.TaxBreakdown[1200] != 6_000 {
		t.Fatalf("expected 12%% slab 6000, got %d", summary.TaxBreakdown[1200])
	}
	if summary.Taxes != 11_000 {
		t.Fatalf("expected taxes 11000, got %d", summary.Taxes)
	}
	if _, ok := summary.TaxBreakdown[0]; ok {
		t.Fatal("zero-rate lines must not appear in the breakdown")
	}
}

func TestPriceIgnoresNonPositiveQty(t *testing.T) {
	summary := Price([]Line{{Qty: 0, UnitPrice: 10_000, TaxRateBps: 500}})
	if summary.Subtotal != 0 || summary.Taxes != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestShippingFee(t *testing.T) {
	if fee := ShippingFee(200_000, 100_000, 9_900); fee != 0 {
		t.Fatalf("expected free shipping above threshold, got %d", fee)
	}
	if fee := ShippingFee(50_000, 100_000, 9_900); fee != 9_900 {
		t.Fatalf("expected flat fee below threshold, got %d", fee)
	}
	if fee := ShippingFee(50_000, 0, 9_900); fee != 0 {
		t.Fatalf("expected free shipping with no threshold, got %d", fee)
	}
}

func TestTotalInvariant(t *testing.T) {
	total := Total(200_000, 10_000, 0, 0, 0)
	if total != 210_000 {
		t.Fatalf("expected total 210000, got %d", total)
	}
	if Total(1_000, 0, 0, 500, 500) != 0 {
		t.Fatal("expected fully settled total to be zero")
	}
}
