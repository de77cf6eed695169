package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinPayout_Basic(t *testing.T) {
	assert.Equal(t, uint64(195), WinPayout(100))
	assert.Equal(t, uint64(1_950_000), WinPayout(1_000_000))
}

func TestWinPayout_FloorsFractions(t *testing.T) {
	// 1 * 1.95 = 1.95, floored.
	assert.Equal(t, uint64(1), WinPayout(1))
	assert.Equal(t, uint64(19), WinPayout(10))
	assert.Equal(t, uint64(1948), WinPayout(999))
}

func TestWinPayout_Zero(t *testing.T) {
	assert.Equal(t, uint64(0), WinPayout(0))
}

func TestWinPayout_SaturatesAtCeiling(t *testing.T) {
	max := ^uint64(0)
	assert.Equal(t, max, WinPayout(max))

	// Largest amount whose payout still fits.
	largest := max / 195 * 100
	assert.Less(t, WinPayout(largest), max)
}

func TestPayout_OnlyWonBetsPay(t *testing.T) {
	b := Bet{Amount: 1000}
	for _, status := range []BetStatus{BetStatusActive, BetStatusRefunded, BetStatusLost, BetStatusClaimed} {
		b.Status = status
		assert.Equal(t, uint64(0), Payout(b), "status %s must pay nothing", status)
	}
	b.Status = BetStatusWon
	assert.Equal(t, uint64(1950), Payout(b))
}

func TestRefundAmount_ExactStake(t *testing.T) {
	b := Bet{Amount: 777, Status: BetStatusRefunded}
	assert.Equal(t, uint64(777), RefundAmount(b))

	b.Status = BetStatusWon
	assert.Equal(t, uint64(0), RefundAmount(b))
}

func TestAddPool_Overflow(t *testing.T) {
	sum, err := AddPool(10, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), sum)

	_, err = AddPool(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrPoolOverflow)

	sum, err = AddPool(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)
}
