package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpool/matchpool/internal/domain"
)

func TestPlaceBet_HappyPath(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)

	b := f.place(t, m.ID, "alice", domain.BetSideA, 100)
	assert.Equal(t, domain.BetStatusActive, b.Status)
	assert.Equal(t, m.ID, b.MarketID)

	poolA, poolB := f.poolTotals(t, m.ID)
	assert.Equal(t, uint64(100), poolA)
	assert.Equal(t, uint64(0), poolB)
}

func TestPlaceBet_PoolsGrowWithEachStake(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)

	f.place(t, m.ID, "alice", domain.BetSideA, 100)
	poolA, poolB := f.poolTotals(t, m.ID)
	assert.Equal(t, uint64(100), poolA)
	assert.Equal(t, uint64(0), poolB)

	f.place(t, m.ID, "bob", domain.BetSideB, 60)
	poolA, poolB = f.poolTotals(t, m.ID)
	assert.Equal(t, uint64(100), poolA)
	assert.Equal(t, uint64(60), poolB)

	f.place(t, m.ID, "carol", domain.BetSideA, 40)
	poolA, poolB = f.poolTotals(t, m.ID)
	assert.Equal(t, uint64(140), poolA)
	assert.Equal(t, uint64(60), poolB)

	// The stored record carries the same totals, so the imbalance the
	// balancer acts on is real.
	stored, err := f.store.Markets().GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	heavy, diff := stored.Imbalance()
	assert.Equal(t, domain.BetSideA, heavy)
	assert.Equal(t, uint64(80), diff)
}

func TestPlaceBet_Rejections(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	_, err := f.escrow.PlaceBet(ctx, m.ID, "", domain.BetSideA, 100)
	assert.ErrorIs(t, err, domain.ErrEmptyIdentity)

	_, err = f.escrow.PlaceBet(ctx, m.ID, "alice", domain.BetSide("yes"), 100)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)

	_, err = f.escrow.PlaceBet(ctx, m.ID, "alice", domain.BetSideA, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	// Below the configured floor of 10.
	_, err = f.escrow.PlaceBet(ctx, m.ID, "alice", domain.BetSideA, 9)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.escrow.PlaceBet(ctx, "no-such-market", "alice", domain.BetSideA, 100)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The admin cannot bet on its own market.
	_, err = f.escrow.PlaceBet(ctx, m.ID, "admin", domain.BetSideA, 100)
	assert.ErrorIs(t, err, domain.ErrSelfBetForbidden)
}

func TestPlaceBet_OneLiveBetPerBettor(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	f.place(t, m.ID, "alice", domain.BetSideA, 100)

	_, err := f.escrow.PlaceBet(ctx, m.ID, "alice", domain.BetSideA, 50)
	assert.ErrorIs(t, err, domain.ErrDuplicateBet)

	// Same bettor on the other side is still a duplicate.
	_, err = f.escrow.PlaceBet(ctx, m.ID, "alice", domain.BetSideB, 50)
	assert.ErrorIs(t, err, domain.ErrDuplicateBet)

	// A rejected duplicate leaves the pools untouched.
	poolA, poolB := f.poolTotals(t, m.ID)
	assert.Equal(t, uint64(100), poolA)
	assert.Equal(t, uint64(0), poolB)
}

func TestPlaceBet_RefundedBettorMayReenter(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)

	f.place(t, m.ID, "alice", domain.BetSideA, 100)
	f.place(t, m.ID, "bob", domain.BetSideB, 30)

	f.toLock(m)
	_, err := f.balance.Run(context.Background(), m.ID)
	require.NoError(t, err)

	// alice was refunded by the balance pass; a later market would accept a
	// fresh bet from her, and liveness only counts the active one.
	_, err = f.store.Bets().GetActive(context.Background(), m.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceBet_ClosedMarket(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)

	f.toLock(m)
	_, err := f.escrow.PlaceBet(context.Background(), m.ID, "alice", domain.BetSideA, 100)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestPlaceBet_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.escrow.cfg.RateLimit = 2
	f.escrow.cfg.RateWindow = time.Minute
	m := f.createMarket(t)
	ctx := context.Background()

	f.place(t, m.ID, "alice", domain.BetSideA, 100)
	f.place(t, m.ID, "bob", domain.BetSideB, 100)

	// Each bettor has its own budget; carol's first bet hits a fresh window.
	f.place(t, m.ID, "carol", domain.BetSideA, 100)

	// alice has one request left in her window before the limiter trips.
	_, err := f.escrow.PlaceBet(ctx, m.ID, "alice", domain.BetSideA, 100)
	require.Error(t, err) // duplicate, but consumed a rate token
	_, err = f.escrow.PlaceBet(ctx, m.ID, "alice", domain.BetSideA, 100)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestPlaceBet_PoolInvariant(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)

	stakes := []struct {
		bettor string
		side   domain.BetSide
		amount uint64
	}{
		{"alice", domain.BetSideA, 120},
		{"bob", domain.BetSideB, 45},
		{"carol", domain.BetSideA, 33},
		{"dave", domain.BetSideB, 260},
		{"erin", domain.BetSideA, 18},
	}
	for _, s := range stakes {
		f.place(t, m.ID, s.bettor, s.side, s.amount)
	}

	active, err := f.escrow.ActiveBets(context.Background(), m.ID)
	require.NoError(t, err)

	var sumA, sumB uint64
	for _, b := range active {
		if b.Side == domain.BetSideA {
			sumA += b.Amount
		} else {
			sumB += b.Amount
		}
	}
	poolA, poolB := f.poolTotals(t, m.ID)
	assert.Equal(t, sumA, poolA)
	assert.Equal(t, sumB, poolB)
}
