package memory

import (
	"context"
	"sync"

	"github.com/matchpool/matchpool/internal/domain"
)

// MarketCache implements domain.MarketCache over a plain map. No TTL: local
// mode invalidates explicitly on every write path.
type MarketCache struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
}

// NewMarketCache creates an empty MarketCache.
func NewMarketCache() *MarketCache {
	return &MarketCache{markets: make(map[string]domain.Market)}
}

// Set stores a market.
func (c *MarketCache) Set(_ context.Context, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markets[m.ID] = m
	return nil
}

// Get retrieves a market or domain.ErrNotFound.
func (c *MarketCache) Get(_ context.Context, id string) (domain.Market, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

// Invalidate drops a cached market.
func (c *MarketCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markets, id)
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
