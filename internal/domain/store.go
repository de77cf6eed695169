package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore provides read access and creation for market records.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListByStatus(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)

	// ListBalanceDue returns active, not-yet-balanced markets whose lock
	// time has passed. The balance sweeper polls this.
	ListBalanceDue(ctx context.Context, now time.Time) ([]Market, error)
}

// BetStore provides read access to bet records.
type BetStore interface {
	GetByID(ctx context.Context, id string) (Bet, error)

	// GetActive returns the bettor's live bet on a market, or ErrNotFound.
	// At most one exists at a time.
	GetActive(ctx context.Context, marketID, bettor string) (Bet, error)

	// ListActiveBySide returns the active bets on one side in chronological
	// order (oldest first, ties broken by ID). Re-querying is idempotent
	// and side-effect-free.
	ListActiveBySide(ctx context.Context, marketID string, side BetSide) ([]Bet, error)

	// ListActive returns all active bets on a market, both sides.
	ListActive(ctx context.Context, marketID string) ([]Bet, error)

	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Bet, error)
}

// LedgerStore applies whole-operation mutations. Each method is
// all-or-nothing: it either commits every state change it describes or none
// of them, and each conditions its market write on the current stored status
// so a racing transition can never be overwritten.
type LedgerStore interface {
	// PlaceBet inserts the bet and writes the market's updated pool totals
	// in one transaction. Fails with ErrMarketNotActive if the market is no
	// longer active, and with ErrDuplicateBet if the bettor already has a
	// live bet on the market.
	PlaceBet(ctx context.Context, m Market, b Bet) error

	// ApplyRefunds marks the given bets refunded, writes the market's
	// reduced pool totals, and records the market as balanced.
	ApplyRefunds(ctx context.Context, m Market, refunded []Bet) error

	// Settle performs the single-fire transition to settled: sets the
	// winner, stamps the settlement time, and assigns the given bets won,
	// lost, or refunded (draw). Fails with ErrAlreadySettled if the market
	// is not active.
	Settle(ctx context.Context, m Market, wonIDs, lostIDs, refundedIDs []string) error

	// Cancel aborts an active market: all active bets refunded, pools
	// drained, status cancelled.
	Cancel(ctx context.Context, m Market, refundedIDs []string) error

	// Claim performs the single-fire transition won -> claimed. Fails with
	// ErrNothingToClaim if the bet is not in the won state.
	Claim(ctx context.Context, b Bet, claimedAt time.Time) error
}

// AuditEntry is a single append-only audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of ledger operations.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
