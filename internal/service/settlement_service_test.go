package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpool/matchpool/internal/domain"
)

func TestSubmitResult_SideWins(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	bA := f.place(t, m.ID, "alice", domain.BetSideA, 100)
	bB := f.place(t, m.ID, "bob", domain.BetSideB, 100)

	f.toSettlement(m)
	settled, err := f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.ScoredOutcome(2, 1))
	require.NoError(t, err)

	assert.Equal(t, domain.MarketStatusSettled, settled.Status)
	assert.Equal(t, domain.WinnerSideA, settled.Winner)
	require.NotNil(t, settled.SettledAt)

	assert.Equal(t, domain.BetStatusWon, f.betStatus(t, bA.ID))
	assert.Equal(t, domain.BetStatusLost, f.betStatus(t, bB.ID))
}

func TestSubmitResult_OracleGate(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	f.place(t, m.ID, "alice", domain.BetSideA, 100)
	f.toSettlement(m)

	// Neither the admin nor a stranger may submit.
	_, err := f.settlement.SubmitResult(ctx, m.ID, "admin", domain.DirectOutcome(domain.WinnerSideA))
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAuthority)
	_, err = f.settlement.SubmitResult(ctx, m.ID, "mallory", domain.DirectOutcome(domain.WinnerSideA))
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAuthority)

	// Rejected submissions leave the market untouched.
	got, err := f.markets.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusActive, got.Status)
	assert.Equal(t, domain.WinnerNone, got.Winner)
}

func TestSubmitResult_TimingGates(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	// Before the lock time: the event has not even closed.
	_, err := f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideA))
	assert.ErrorIs(t, err, domain.ErrEventNotReady)

	// Between lock and settlement time: still too early.
	f.toLock(m)
	_, err = f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideA))
	assert.ErrorIs(t, err, domain.ErrResultTooEarly)
}

func TestSubmitResult_SingleFire(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	f.place(t, m.ID, "alice", domain.BetSideA, 100)
	f.toSettlement(m)

	_, err := f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideA))
	require.NoError(t, err)

	// A second submission, even with a different outcome, fails.
	_, err = f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideB))
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	got, err := f.markets.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WinnerSideA, got.Winner)
}

func TestSubmitResult_CancelledMarket(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	f.place(t, m.ID, "alice", domain.BetSideA, 100)
	require.NoError(t, f.markets.CancelMarket(ctx, m.ID, "admin"))
	f.toSettlement(m)

	// Cancelled is not settled; the error says which state blocked it.
	_, err := f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideA))
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
	assert.NotErrorIs(t, err, domain.ErrAlreadySettled)
}

func TestSubmitResult_InvalidOutcome(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)

	f.toSettlement(m)
	_, err := f.settlement.SubmitResult(context.Background(), m.ID, "oracle", domain.DirectOutcome(domain.WinnerNone))
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestSubmitResult_DrawRefundsEveryone(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	bA := f.place(t, m.ID, "alice", domain.BetSideA, 100)
	bB := f.place(t, m.ID, "bob", domain.BetSideB, 100)

	f.toSettlement(m)
	settled, err := f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.ScoredOutcome(1, 1))
	require.NoError(t, err)

	assert.Equal(t, domain.WinnerDraw, settled.Winner)
	assert.Equal(t, domain.BetStatusRefunded, f.betStatus(t, bA.ID))
	assert.Equal(t, domain.BetStatusRefunded, f.betStatus(t, bB.ID))

	poolA, poolB := f.poolTotals(t, m.ID)
	assert.Equal(t, uint64(0), poolA)
	assert.Equal(t, uint64(0), poolB)
}

func TestClaim_PaysOutOnce(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	bA := f.place(t, m.ID, "alice", domain.BetSideA, 1_000_000)
	f.place(t, m.ID, "bob", domain.BetSideB, 1_000_000)

	f.toSettlement(m)
	_, err := f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideA))
	require.NoError(t, err)

	payout, err := f.settlement.Claim(ctx, bA.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_950_000), payout)
	assert.Equal(t, domain.BetStatusClaimed, f.betStatus(t, bA.ID))

	_, err = f.settlement.Claim(ctx, bA.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
}

func TestClaim_Rejections(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	bA := f.place(t, m.ID, "alice", domain.BetSideA, 100)
	bB := f.place(t, m.ID, "bob", domain.BetSideB, 100)

	// Active bet: nothing to claim yet.
	_, err := f.settlement.Claim(ctx, bA.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)

	f.toSettlement(m)
	_, err = f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideA))
	require.NoError(t, err)

	// Only the owner may claim.
	_, err = f.settlement.Claim(ctx, bA.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotBetOwner)

	// Lost bets pay nothing.
	_, err = f.settlement.Claim(ctx, bB.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrNothingToClaim)

	_, err = f.settlement.Claim(ctx, "no-such-bet", "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntitlement(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	bA := f.place(t, m.ID, "alice", domain.BetSideA, 200)
	bB := f.place(t, m.ID, "bob", domain.BetSideB, 200)
	bC := f.place(t, m.ID, "carol", domain.BetSideA, 100)

	f.toLock(m)
	_, err := f.balance.Run(ctx, m.ID)
	require.NoError(t, err)

	// carol's later bet was refunded by the balance pass: owed her stake.
	owed, err := f.settlement.Entitlement(ctx, bC.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), owed)

	f.toSettlement(m)
	_, err = f.settlement.SubmitResult(ctx, m.ID, "oracle", domain.DirectOutcome(domain.WinnerSideA))
	require.NoError(t, err)

	owed, err = f.settlement.Entitlement(ctx, bA.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(390), owed)

	owed, err = f.settlement.Entitlement(ctx, bB.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), owed)
}
