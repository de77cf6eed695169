package memory

import (
	"context"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

type ledgerStore struct{ s *Store }

func (v ledgerStore) PlaceBet(_ context.Context, m domain.Market, b domain.Bet) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	stored, ok := v.s.markets[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.MarketStatusActive {
		return domain.ErrMarketNotActive
	}
	for _, existing := range v.s.bets {
		if existing.MarketID == m.ID && existing.Bettor == b.Bettor && existing.Status == domain.BetStatusActive {
			return domain.ErrDuplicateBet
		}
	}

	stored.PoolA = m.PoolA
	stored.PoolB = m.PoolB
	v.s.markets[m.ID] = stored
	v.s.bets[b.ID] = b
	return nil
}

func (v ledgerStore) ApplyRefunds(_ context.Context, m domain.Market, refunded []domain.Bet) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	stored, ok := v.s.markets[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.MarketStatusActive {
		return domain.ErrMarketNotActive
	}

	for _, b := range refunded {
		existing, ok := v.s.bets[b.ID]
		if !ok || existing.Status != domain.BetStatusActive {
			return domain.ErrNotFound
		}
	}
	for _, b := range refunded {
		existing := v.s.bets[b.ID]
		existing.Status = domain.BetStatusRefunded
		v.s.bets[b.ID] = existing
	}

	stored.PoolA = m.PoolA
	stored.PoolB = m.PoolB
	stored.Balanced = true
	v.s.markets[m.ID] = stored
	return nil
}

func (v ledgerStore) Settle(_ context.Context, m domain.Market, wonIDs, lostIDs, refundedIDs []string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	stored, ok := v.s.markets[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.MarketStatusActive {
		return domain.ErrAlreadySettled
	}

	assign := func(ids []string, status domain.BetStatus) {
		for _, id := range ids {
			b := v.s.bets[id]
			b.Status = status
			v.s.bets[id] = b
		}
	}
	assign(wonIDs, domain.BetStatusWon)
	assign(lostIDs, domain.BetStatusLost)
	assign(refundedIDs, domain.BetStatusRefunded)

	stored.Status = domain.MarketStatusSettled
	stored.Winner = m.Winner
	stored.SettledAt = m.SettledAt
	stored.PoolA = m.PoolA
	stored.PoolB = m.PoolB
	stored.Balanced = true
	v.s.markets[m.ID] = stored
	return nil
}

func (v ledgerStore) Cancel(_ context.Context, m domain.Market, refundedIDs []string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	stored, ok := v.s.markets[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.MarketStatusActive {
		return domain.ErrMarketNotActive
	}

	for _, id := range refundedIDs {
		b := v.s.bets[id]
		b.Status = domain.BetStatusRefunded
		v.s.bets[id] = b
	}

	stored.Status = domain.MarketStatusCancelled
	stored.PoolA = 0
	stored.PoolB = 0
	stored.SettledAt = m.SettledAt
	v.s.markets[m.ID] = stored
	return nil
}

func (v ledgerStore) Claim(_ context.Context, b domain.Bet, claimedAt time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	stored, ok := v.s.bets[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.BetStatusWon {
		return domain.ErrNothingToClaim
	}

	stored.Status = domain.BetStatusClaimed
	stored.ClaimedAt = &claimedAt
	v.s.bets[b.ID] = stored
	return nil
}
