package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MarketStatus tracks the market lifecycle. "Closed" is not a stored status:
// a market is closed once its lock time passes, which is a derived read.
type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "active"
	MarketStatusSettled   MarketStatus = "settled"
	MarketStatusCancelled MarketStatus = "cancelled"
)

// Winner identifies the settled outcome of a market.
type Winner string

const (
	WinnerNone  Winner = "none"
	WinnerSideA Winner = "side_a"
	WinnerSideB Winner = "side_b"
	WinnerDraw  Winner = "draw"
)

// Input length caps for market creation.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 500
	MaxLabelLen       = 100
)

// Market is a single two-outcome betting event. PoolA and PoolB are running
// totals in integer base units and always equal the sum of Amount over
// non-refunded bets on the corresponding side.
type Market struct {
	ID              string
	Title           string
	Description     string
	SideA           string
	SideB           string
	PoolA           uint64
	PoolB           uint64
	LockTime        time.Time
	SettlementTime  time.Time
	Status          MarketStatus
	Winner          Winner
	Balanced        bool
	Admin           string
	ResultAuthority string
	CreatedAt       time.Time
	SettledAt       *time.Time
}

// BettingOpen reports whether new bets may be placed.
func (m Market) BettingOpen(now time.Time) bool {
	return m.Status == MarketStatusActive && now.Before(m.LockTime)
}

// Closed reports whether the betting window has ended. Closed is derived,
// not stored: an active market past its lock time is closed.
func (m Market) Closed(now time.Time) bool {
	return m.Status != MarketStatusActive || !now.Before(m.LockTime)
}

// Pool returns the running total for one side.
func (m Market) Pool(side BetSide) uint64 {
	if side == BetSideA {
		return m.PoolA
	}
	return m.PoolB
}

// Imbalance returns the heavier side and the absolute pool difference.
// When the pools are equal the difference is zero and the side is BetSideA.
func (m Market) Imbalance() (BetSide, uint64) {
	if m.PoolB > m.PoolA {
		return BetSideB, m.PoolB - m.PoolA
	}
	return BetSideA, m.PoolA - m.PoolB
}

// CreateMarketParams carries the admin-supplied inputs for a new market.
type CreateMarketParams struct {
	Admin           string
	ResultAuthority string
	Title           string
	Description     string
	SideA           string
	SideB           string
	LockTime        time.Time
	SettlementTime  time.Time
}

// Validate checks every creation precondition against the given clock
// reading. It returns the first violated sentinel error.
func (p CreateMarketParams) Validate(now time.Time) error {
	if strings.TrimSpace(p.Admin) == "" || strings.TrimSpace(p.ResultAuthority) == "" {
		return ErrEmptyIdentity
	}
	if p.ResultAuthority == p.Admin {
		return ErrAuthorityIsAdmin
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(p.Title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(p.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	for _, label := range []string{p.SideA, p.SideB} {
		if strings.TrimSpace(label) == "" {
			return ErrEmptyLabel
		}
		if utf8.RuneCountInString(label) > MaxLabelLen {
			return ErrLabelTooLong
		}
	}
	if strings.TrimSpace(p.SideA) == strings.TrimSpace(p.SideB) {
		return ErrDuplicateLabels
	}
	if !p.LockTime.After(now) {
		return ErrLockTimeNotFuture
	}
	if !p.SettlementTime.After(p.LockTime) {
		return ErrSettlementBeforeLock
	}
	return nil
}
