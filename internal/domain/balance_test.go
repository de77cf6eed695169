package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func betAt(id string, amount uint64, placed time.Time) Bet {
	return Bet{ID: id, Amount: amount, PlacedAt: placed, Status: BetStatusActive, Side: BetSideA}
}

func TestPlanRefunds_MostRecentFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Heavy side holds 100 + 50, light side 30: imbalance 120.
	active := []Bet{
		betAt("b1", 100, base),
		betAt("b2", 50, base.Add(time.Minute)),
	}

	plan := PlanRefunds(active, 120)
	require.Len(t, plan, 2)
	assert.Equal(t, "b2", plan[0].ID)
	assert.Equal(t, "b1", plan[1].ID)
}

func TestPlanRefunds_StopsOnceCovered(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	active := []Bet{
		betAt("b1", 100, base),
		betAt("b2", 40, base.Add(time.Minute)),
		betAt("b3", 40, base.Add(2*time.Minute)),
	}

	// 40 + 40 covers an imbalance of 80; b1 stays.
	plan := PlanRefunds(active, 80)
	require.Len(t, plan, 2)
	assert.Equal(t, "b3", plan[0].ID)
	assert.Equal(t, "b2", plan[1].ID)
}

func TestPlanRefunds_WholeBetOvershoot(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	active := []Bet{
		betAt("b1", 100, base),
	}

	// Refunds are whole-bet: a 100 bet covers a 30 imbalance with residual.
	plan := PlanRefunds(active, 30)
	require.Len(t, plan, 1)
	assert.Equal(t, "b1", plan[0].ID)
}

func TestPlanRefunds_ZeroImbalance(t *testing.T) {
	active := []Bet{betAt("b1", 100, time.Now())}
	assert.Empty(t, PlanRefunds(active, 0))
}

func TestPlanRefunds_ExhaustsCandidates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	active := []Bet{
		betAt("b1", 10, base),
		betAt("b2", 10, base.Add(time.Minute)),
	}

	// Imbalance larger than everything on the side: refund all of it.
	plan := PlanRefunds(active, 1000)
	assert.Len(t, plan, 2)
}
