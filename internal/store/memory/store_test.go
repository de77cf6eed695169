package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpool/matchpool/internal/domain"
)

func seedMarket(t *testing.T, s *Store) domain.Market {
	t.Helper()

	m := domain.Market{
		ID:              "m1",
		Title:           "Test market",
		SideA:           "A",
		SideB:           "B",
		Status:          domain.MarketStatusActive,
		Winner:          domain.WinnerNone,
		Admin:           "admin",
		ResultAuthority: "oracle",
		LockTime:        time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		SettlementTime:  time.Date(2026, 7, 1, 14, 0, 0, 0, time.UTC),
		CreatedAt:       time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Markets().Create(context.Background(), m))
	return m
}

func seedBet(t *testing.T, s *Store, m domain.Market, id, bettor string, side domain.BetSide, amount uint64, placed time.Time) domain.Bet {
	t.Helper()

	b := domain.Bet{
		ID:       id,
		MarketID: m.ID,
		Bettor:   bettor,
		Side:     side,
		Amount:   amount,
		PlacedAt: placed,
		Status:   domain.BetStatusActive,
	}
	require.NoError(t, s.Ledger().PlaceBet(context.Background(), m, b))
	return b
}

func TestLedger_PlaceBetEnforcesLiveness(t *testing.T) {
	s := NewStore()
	m := seedMarket(t, s)
	ctx := context.Background()
	base := m.CreatedAt

	seedBet(t, s, m, "b1", "alice", domain.BetSideA, 100, base)

	err := s.Ledger().PlaceBet(ctx, m, domain.Bet{
		ID: "b2", MarketID: m.ID, Bettor: "alice",
		Side: domain.BetSideB, Amount: 50,
		PlacedAt: base.Add(time.Minute), Status: domain.BetStatusActive,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateBet)
}

func TestLedger_ApplyRefundsRequiresActiveBets(t *testing.T) {
	s := NewStore()
	m := seedMarket(t, s)
	ctx := context.Background()

	b := seedBet(t, s, m, "b1", "alice", domain.BetSideA, 100, m.CreatedAt)

	m.Balanced = true
	require.NoError(t, s.Ledger().ApplyRefunds(ctx, m, []domain.Bet{b}))

	// Refunding the same bet again fails; its status already moved on.
	err := s.Ledger().ApplyRefunds(ctx, m, []domain.Bet{b})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_SettleIsConditional(t *testing.T) {
	s := NewStore()
	m := seedMarket(t, s)
	ctx := context.Background()

	b := seedBet(t, s, m, "b1", "alice", domain.BetSideA, 100, m.CreatedAt)

	now := m.SettlementTime.Add(time.Minute)
	m.Winner = domain.WinnerSideA
	m.SettledAt = &now
	require.NoError(t, s.Ledger().Settle(ctx, m, []string{b.ID}, nil, nil))

	got, err := s.Bets().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, got.Status)

	// The stored status flipped to settled; a rerun cannot fire again.
	err = s.Ledger().Settle(ctx, m, nil, []string{b.ID}, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestLedger_ClaimIsSingleFire(t *testing.T) {
	s := NewStore()
	m := seedMarket(t, s)
	ctx := context.Background()

	b := seedBet(t, s, m, "b1", "alice", domain.BetSideA, 100, m.CreatedAt)

	now := m.SettlementTime.Add(time.Minute)
	m.Winner = domain.WinnerSideA
	m.SettledAt = &now
	require.NoError(t, s.Ledger().Settle(ctx, m, []string{b.ID}, nil, nil))

	claimedAt := now.Add(time.Hour)
	require.NoError(t, s.Ledger().Claim(ctx, b, claimedAt))

	got, err := s.Bets().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusClaimed, got.Status)
	require.NotNil(t, got.ClaimedAt)
	assert.Equal(t, claimedAt, *got.ClaimedAt)

	assert.ErrorIs(t, s.Ledger().Claim(ctx, b, claimedAt), domain.ErrNothingToClaim)
}

func TestBetStore_ListActiveBySideOrdering(t *testing.T) {
	s := NewStore()
	m := seedMarket(t, s)
	ctx := context.Background()
	base := m.CreatedAt

	// Same timestamp for b2/b3: ties break on ID.
	seedBet(t, s, m, "b3", "carol", domain.BetSideA, 30, base.Add(time.Minute))
	seedBet(t, s, m, "b1", "alice", domain.BetSideA, 10, base)
	seedBet(t, s, m, "b2", "bob", domain.BetSideA, 20, base.Add(time.Minute))

	bets, err := s.Bets().ListActiveBySide(ctx, m.ID, domain.BetSideA)
	require.NoError(t, err)
	require.Len(t, bets, 3)
	assert.Equal(t, "b1", bets[0].ID)
	assert.Equal(t, "b2", bets[1].ID)
	assert.Equal(t, "b3", bets[2].ID)
}

func TestMarketStore_ListSettledBefore(t *testing.T) {
	s := NewStore()
	m := seedMarket(t, s)
	ctx := context.Background()

	cutoff := m.SettlementTime.Add(24 * time.Hour)

	// Active markets are never archived.
	resolved, err := s.Markets().(interface {
		ListSettledBefore(context.Context, time.Time) ([]domain.Market, error)
	}).ListSettledBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Empty(t, resolved)

	settledAt := m.SettlementTime.Add(time.Minute)
	m.Winner = domain.WinnerSideA
	m.SettledAt = &settledAt
	require.NoError(t, s.Ledger().Settle(ctx, m, nil, nil, nil))

	resolved, err = s.Markets().(interface {
		ListSettledBefore(context.Context, time.Time) ([]domain.Market, error)
	}).ListSettledBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, m.ID, resolved[0].ID)
}

func TestAuditStore_AppendOnly(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Audit().Log(ctx, "bet_placed", map[string]any{"bet_id": "b1"}))
	require.NoError(t, s.Audit().Log(ctx, "market_settled", map[string]any{"market_id": "m1"}))

	// Newest first.
	entries, err := s.Audit().List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "market_settled", entries[0].Event)
	assert.Equal(t, "bet_placed", entries[1].Event)
	assert.Greater(t, entries[0].ID, entries[1].ID)
}
