package domain

import "math/bits"

// Fixed-odds payout: 1.95x stake, i.e. double the stake with a 2.5% platform
// fee folded into the multiplier. Identical for every winning bet regardless
// of pool size.
const (
	payoutNumerator   = 195
	payoutDenominator = 100
)

// WinPayout returns floor(amount * 195 / 100) using 128-bit intermediate
// arithmetic. The result saturates at the uint64 ceiling instead of wrapping;
// saturation here is a display ceiling, not an accounting path.
func WinPayout(amount uint64) uint64 {
	hi, lo := bits.Mul64(amount, payoutNumerator)
	if hi >= payoutDenominator {
		// Quotient would exceed 64 bits.
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, payoutDenominator)
	return q
}

// Payout returns the claimable amount for a bet: the fixed-odds payout for a
// won bet, zero for everything else. Refunds are not computed here; they are
// a distinct code path in the ledger and balancer.
func Payout(b Bet) uint64 {
	if b.Status != BetStatusWon {
		return 0
	}
	return WinPayout(b.Amount)
}

// RefundAmount returns the amount owed back for a refunded bet: exactly the
// original stake, never run through the payout formula.
func RefundAmount(b Bet) uint64 {
	if b.Status != BetStatusRefunded {
		return 0
	}
	return b.Amount
}

// AddPool returns total + amount, failing with ErrPoolOverflow rather than
// wrapping. Pool accounting never saturates.
func AddPool(total, amount uint64) (uint64, error) {
	sum := total + amount
	if sum < total {
		return 0, ErrPoolOverflow
	}
	return sum, nil
}
