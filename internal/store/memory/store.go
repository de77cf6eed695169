// Package memory provides in-process implementations of the domain store
// interfaces. The daemon uses them in local mode; the service tests use them
// to exercise full operation flows without external infrastructure.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

// Store holds all records behind a single mutex, which gives each ledger
// operation the same all-or-nothing, exclusive-write semantics the
// PostgreSQL implementation gets from transactions. The typed views returned
// by Markets, Bets, Ledger, and Audit all share this state.
type Store struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
	bets    map[string]domain.Bet
	audit   []domain.AuditEntry
	auditID int64
	now     func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		markets: make(map[string]domain.Market),
		bets:    make(map[string]domain.Bet),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Markets returns the store's domain.MarketStore view.
func (s *Store) Markets() domain.MarketStore { return marketStore{s} }

// Bets returns the store's domain.BetStore view.
func (s *Store) Bets() domain.BetStore { return betStore{s} }

// Ledger returns the store's domain.LedgerStore view.
func (s *Store) Ledger() domain.LedgerStore { return ledgerStore{s} }

// Audit returns the store's domain.AuditStore view.
func (s *Store) Audit() domain.AuditStore { return auditStore{s} }

// sortByPlacement orders bets chronologically with ID tie-break, the
// deterministic ordering the LIFO refund walk depends on.
func sortByPlacement(bets []domain.Bet) {
	sort.Slice(bets, func(i, j int) bool {
		if bets[i].PlacedAt.Equal(bets[j].PlacedAt) {
			return bets[i].ID < bets[j].ID
		}
		return bets[i].PlacedAt.Before(bets[j].PlacedAt)
	})
}

func paginate[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
