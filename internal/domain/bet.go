package domain

import "time"

// BetSide is the outcome a bet is staked on.
type BetSide string

const (
	BetSideA BetSide = "side_a"
	BetSideB BetSide = "side_b"
)

// Valid reports whether the side is one of the two known values.
func (s BetSide) Valid() bool {
	return s == BetSideA || s == BetSideB
}

// Opposite returns the other side.
func (s BetSide) Opposite() BetSide {
	if s == BetSideA {
		return BetSideB
	}
	return BetSideA
}

// WinnerFor returns the Winner value corresponding to this side.
func (s BetSide) WinnerFor() Winner {
	if s == BetSideA {
		return WinnerSideA
	}
	return WinnerSideB
}

// BetStatus tracks the bet lifecycle. Transitions are monotonic:
// active -> refunded | won | lost, and won -> claimed. Nothing else.
type BetStatus string

const (
	BetStatusActive   BetStatus = "active"
	BetStatusRefunded BetStatus = "refunded"
	BetStatusWon      BetStatus = "won"
	BetStatusLost     BetStatus = "lost"
	BetStatusClaimed  BetStatus = "claimed"
)

// CanTransition reports whether a status change is legal.
func CanTransition(from, to BetStatus) bool {
	switch from {
	case BetStatusActive:
		return to == BetStatusRefunded || to == BetStatusWon || to == BetStatusLost
	case BetStatusWon:
		return to == BetStatusClaimed
	default:
		return false
	}
}

// Bet is one bettor's escrowed stake on one side of a market. Amount is
// immutable after creation. PlacedAt is the ordering key for LIFO refund
// selection; ties break on ID for determinism.
type Bet struct {
	ID        string
	MarketID  string
	Bettor    string
	Side      BetSide
	Amount    uint64
	PlacedAt  time.Time
	Status    BetStatus
	ClaimedAt *time.Time
}
