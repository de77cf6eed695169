package memory

import (
	"context"

	"github.com/matchpool/matchpool/internal/domain"
)

type betStore struct{ s *Store }

func (v betStore) GetByID(_ context.Context, id string) (domain.Bet, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	b, ok := v.s.bets[id]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}
	return b, nil
}

func (v betStore) GetActive(_ context.Context, marketID, bettor string) (domain.Bet, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, b := range v.s.bets {
		if b.MarketID == marketID && b.Bettor == bettor && b.Status == domain.BetStatusActive {
			return b, nil
		}
	}
	return domain.Bet{}, domain.ErrNotFound
}

func (v betStore) ListActiveBySide(_ context.Context, marketID string, side domain.BetSide) ([]domain.Bet, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var bets []domain.Bet
	for _, b := range v.s.bets {
		if b.MarketID == marketID && b.Side == side && b.Status == domain.BetStatusActive {
			bets = append(bets, b)
		}
	}
	sortByPlacement(bets)
	return bets, nil
}

func (v betStore) ListActive(_ context.Context, marketID string) ([]domain.Bet, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var bets []domain.Bet
	for _, b := range v.s.bets {
		if b.MarketID == marketID && b.Status == domain.BetStatusActive {
			bets = append(bets, b)
		}
	}
	sortByPlacement(bets)
	return bets, nil
}

func (v betStore) ListByMarket(_ context.Context, marketID string, opts domain.ListOpts) ([]domain.Bet, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var bets []domain.Bet
	for _, b := range v.s.bets {
		if b.MarketID == marketID {
			bets = append(bets, b)
		}
	}
	sortByPlacement(bets)
	return paginate(bets, opts), nil
}
