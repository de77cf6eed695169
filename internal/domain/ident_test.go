package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMarketID_Deterministic(t *testing.T) {
	lock := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	a := DeriveMarketID("admin", "Home", "Away", lock)
	b := DeriveMarketID("admin", "Home", "Away", lock)
	assert.Equal(t, a, b)
	// SHA3-256 hex digest.
	assert.Len(t, a, 64)
}

func TestDeriveMarketID_SensitiveToEveryInput(t *testing.T) {
	lock := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	base := DeriveMarketID("admin", "Home", "Away", lock)

	assert.NotEqual(t, base, DeriveMarketID("admin2", "Home", "Away", lock))
	assert.NotEqual(t, base, DeriveMarketID("admin", "Hom", "eAway", lock))
	assert.NotEqual(t, base, DeriveMarketID("admin", "Away", "Home", lock))
	assert.NotEqual(t, base, DeriveMarketID("admin", "Home", "Away", lock.Add(time.Second)))
}

func TestDeriveMarketID_LocationIndependent(t *testing.T) {
	utc := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	other := utc.In(time.FixedZone("UTC+2", 2*3600))
	assert.Equal(t,
		DeriveMarketID("admin", "Home", "Away", utc),
		DeriveMarketID("admin", "Home", "Away", other),
	)
}

func TestNewBetID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewBetID()
		require.False(t, seen[id], "duplicate bet id %s", id)
		seen[id] = true
	}
}

func TestOutcome_ScoredWinner(t *testing.T) {
	w, err := ScoredOutcome(3, 1).Winner()
	require.NoError(t, err)
	assert.Equal(t, WinnerSideA, w)

	w, err = ScoredOutcome(0, 2).Winner()
	require.NoError(t, err)
	assert.Equal(t, WinnerSideB, w)

	w, err = ScoredOutcome(2, 2).Winner()
	require.NoError(t, err)
	assert.Equal(t, WinnerDraw, w)
}

func TestOutcome_DirectWinner(t *testing.T) {
	for _, pick := range []Winner{WinnerSideA, WinnerSideB, WinnerDraw} {
		w, err := DirectOutcome(pick).Winner()
		require.NoError(t, err)
		assert.Equal(t, pick, w)
	}

	_, err := DirectOutcome(WinnerNone).Winner()
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	_, err = DirectOutcome(Winner("bogus")).Winner()
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}
