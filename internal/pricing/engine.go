package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Line describes a server-priced line item. Unit prices come from the
// authoritative product snapshot, never from the client payload.
type Line struct {
	Qty        int32
	UnitPrice  Money
	TaxRateBps int32
}

// Summary aggregates computed pricing components. TaxBreakdown is keyed by
// the tax rate in basis points.
type Summary struct {
	Subtotal     Money
	Taxes        Money
	TaxBreakdown map[int32]Money
}

// Price computes subtotal and the per-rate tax breakdown for the given lines.
// Tax for each line is itemTotal * rate, accumulated under the line's rate.
func Price(lines []Line) Summary {
	out := Summary{TaxBreakdown: map[int32]Money{}}
	for _, ln := range lines {
		if ln.Qty <= 0 {
			continue
		}
		itemTotal := Money(ln.Qty) * ln.UnitPrice
		out.Subtotal += itemTotal
		if ln.TaxRateBps <= 0 {
			continue
		}
		tax := itemTotal * Money(ln.TaxRateBps) / 10000
		out.Taxes += tax
		out.TaxBreakdown[ln.TaxRateBps] += tax
	}
	return out
}

// ShippingFee returns the shipping cost for an order subtotal: free at or
// above the threshold, a flat fee below it. A non-positive threshold means
// shipping is always free.
func ShippingFee(subtotal, threshold, flatFee Money) Money {
	if threshold <= 0 || subtotal >= threshold {
		return 0
	}
	if flatFee < 0 {
		return 0
	}
	return flatFee
}

// Total folds settlement amounts into the final payable total. The result is
// clamped at zero; callers bound discount and wallet usage beforehand.
func Total(subtotal, taxes, shipping, discount, walletUsed Money) Money {
	total := subtotal + taxes + shipping - discount - walletUsed
	if total < 0 {
		return 0
	}
	return total
}
