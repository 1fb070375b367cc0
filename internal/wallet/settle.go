package wallet

// Settle bounds a requested wallet draw by the available balance and the
// remaining payable amount. The result is never negative and never exceeds
// either bound; mutation of the balance happens only after the order is
// durably persisted.
func Settle(requested, balance, payable int64) int64 {
	if requested <= 0 || balance <= 0 || payable <= 0 {
		return 0
	}
	used := requested
	if used > balance {
		used = balance
	}
	if used > payable {
		used = payable
	}
	return used
}
