package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matchpool/matchpool/internal/domain"
	"github.com/matchpool/matchpool/internal/store/memory"
)

// fakeClock is a manually advanced time source shared by all services in a
// test fixture.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fixture wires the full service layer over in-memory backends.
type fixture struct {
	clock      *fakeClock
	store      *memory.Store
	markets    *MarketService
	escrow     *EscrowService
	balance    *BalanceService
	settlement *SettlementService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewStore()
	cache := memory.NewMarketCache()
	locks := memory.NewLockManager()
	limiter := memory.NewRateLimiter()
	bus := memory.NewSignalBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{clock: clock, store: store}
	f.markets = NewMarketService(
		store.Markets(), store.Bets(), store.Ledger(),
		cache, locks, bus, store.Audit(), clock, logger,
	)
	f.escrow = NewEscrowService(
		store.Markets(), store.Bets(), store.Ledger(),
		cache, locks, limiter, bus, store.Audit(), clock,
		EscrowConfig{MinStake: 10},
		logger,
	)
	f.balance = NewBalanceService(
		store.Markets(), store.Bets(), store.Ledger(),
		cache, locks, bus, store.Audit(), clock, logger,
	)
	f.settlement = NewSettlementService(
		store.Markets(), store.Bets(), store.Ledger(),
		cache, locks, bus, store.Audit(), clock, logger,
	)
	return f
}

// createMarket creates a standard test market: betting open for one hour,
// settlement due one hour after lock.
func (f *fixture) createMarket(t *testing.T) domain.Market {
	t.Helper()

	m, err := f.markets.CreateMarket(context.Background(), domain.CreateMarketParams{
		Admin:           "admin",
		ResultAuthority: "oracle",
		Title:           "Cup final",
		SideA:           "Home",
		SideB:           "Away",
		LockTime:        f.clock.Now().Add(time.Hour),
		SettlementTime:  f.clock.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	return m
}

// place puts a bet down and advances the clock one second so placement order
// is unambiguous.
func (f *fixture) place(t *testing.T, marketID, bettor string, side domain.BetSide, amount uint64) domain.Bet {
	t.Helper()

	b, err := f.escrow.PlaceBet(context.Background(), marketID, bettor, side, amount)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return b
}

// toLock advances the clock past the market's lock time.
func (f *fixture) toLock(m domain.Market) {
	f.clock.Set(m.LockTime.Add(time.Second))
}

// toSettlement advances the clock past the market's settlement time.
func (f *fixture) toSettlement(m domain.Market) {
	f.clock.Set(m.SettlementTime.Add(time.Second))
}

// poolTotals reads the current pool totals.
func (f *fixture) poolTotals(t *testing.T, marketID string) (uint64, uint64) {
	t.Helper()

	poolA, poolB, err := f.escrow.PoolTotals(context.Background(), marketID)
	require.NoError(t, err)
	return poolA, poolB
}

// betStatus reads a bet's current status from the store.
func (f *fixture) betStatus(t *testing.T, betID string) domain.BetStatus {
	t.Helper()

	b, err := f.store.Bets().GetByID(context.Background(), betID)
	require.NoError(t, err)
	return b.Status
}
