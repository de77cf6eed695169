package memory

import (
	"context"
	"sort"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

type marketStore struct{ s *Store }

func (v marketStore) Create(_ context.Context, m domain.Market) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	v.s.markets[m.ID] = m
	return nil
}

func (v marketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	m, ok := v.s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (v marketStore) ListByStatus(_ context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var markets []domain.Market
	for _, m := range v.s.markets {
		if m.Status != status {
			continue
		}
		if opts.Since != nil && m.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && m.CreatedAt.After(*opts.Until) {
			continue
		}
		markets = append(markets, m)
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].CreatedAt.After(markets[j].CreatedAt)
	})
	return paginate(markets, opts), nil
}

func (v marketStore) ListBalanceDue(_ context.Context, now time.Time) ([]domain.Market, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var due []domain.Market
	for _, m := range v.s.markets {
		if m.Status == domain.MarketStatusActive && !m.Balanced && !m.LockTime.After(now) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].LockTime.Before(due[j].LockTime)
	})
	return due, nil
}

func (v marketStore) ListSettledBefore(_ context.Context, before time.Time) ([]domain.Market, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()

	var resolved []domain.Market
	for _, m := range v.s.markets {
		if m.Status == domain.MarketStatusActive {
			continue
		}
		if m.SettledAt == nil || !m.SettledAt.Before(before) {
			continue
		}
		resolved = append(resolved, m)
	}
	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].SettledAt.Before(*resolved[j].SettledAt)
	})
	return resolved, nil
}
