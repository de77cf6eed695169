package domain

// PlanRefunds selects the bets to refund from the heavy side of an
// imbalanced market. The input must be the active bets on the heavy side in
// chronological order (oldest first, ties broken by ID). The walk is LIFO:
// most recently placed bets are refunded first, on the premise that earlier
// bettors deserve priority to remain matched.
//
// Refund granularity is whole-bet. The walk stops as soon as the refunded
// total reaches the imbalance or the candidates are exhausted, so the final
// bet refunded may overshoot; the residual imbalance is bounded by that
// bet's amount and is accepted, not an error.
func PlanRefunds(active []Bet, imbalance uint64) []Bet {
	if imbalance == 0 {
		return nil
	}
	var refunded uint64
	var plan []Bet
	for i := len(active) - 1; i >= 0; i-- {
		if refunded >= imbalance {
			break
		}
		plan = append(plan, active[i])
		refunded += active[i].Amount
	}
	return plan
}
