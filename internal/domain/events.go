package domain

import "time"

// Bus channels and streams. Markets and bets publish to separate pub/sub
// channels; settlements are additionally appended to a durable stream.
const (
	ChannelMarkets     = "markets"
	ChannelBets        = "bets"
	ChannelSettlements = "settlements"
	StreamSettlements  = "stream:settlements"
)

// Event names, shared between bus payloads and the audit log.
const (
	EventMarketCreated   = "market_created"
	EventMarketCancelled = "market_cancelled"
	EventMarketSettled   = "market_settled"
	EventBetPlaced       = "bet_placed"
	EventBetRefunded     = "bet_refunded"
	EventBalanceRun      = "balance_run"
	EventPayoutClaimed   = "payout_claimed"
)

// MarketEvent is published on market creation, cancellation, and settlement.
type MarketEvent struct {
	Event    string    `json:"event"`
	MarketID string    `json:"market_id"`
	Status   string    `json:"status"`
	Winner   string    `json:"winner,omitempty"`
	PoolA    uint64    `json:"pool_a"`
	PoolB    uint64    `json:"pool_b"`
	At       time.Time `json:"at"`
}

// BetEvent is published when a bet is placed or refunded.
type BetEvent struct {
	Event    string    `json:"event"`
	MarketID string    `json:"market_id"`
	BetID    string    `json:"bet_id"`
	Bettor   string    `json:"bettor"`
	Side     string    `json:"side"`
	Amount   uint64    `json:"amount"`
	At       time.Time `json:"at"`
}

// ClaimEvent is published when a won bet's payout is claimed.
type ClaimEvent struct {
	Event    string    `json:"event"`
	MarketID string    `json:"market_id"`
	BetID    string    `json:"bet_id"`
	Bettor   string    `json:"bettor"`
	Amount   uint64    `json:"amount"`
	Payout   uint64    `json:"payout"`
	At       time.Time `json:"at"`
}
