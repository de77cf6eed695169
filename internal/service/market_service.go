// Package service implements the settlement core's operations: market
// creation and cancellation, the escrow ledger, pool balancing, the oracle
// gate, settlement, and claims. Every mutating operation acquires the
// market's lock for its full duration and re-validates preconditions against
// the injected clock at execution time.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

// lockTTL bounds how long a crashed holder can leave a market locked.
const lockTTL = 10 * time.Second

func marketLockKey(id string) string { return "market:" + id }

// MarketService handles market creation, lookup, and the admin abort path.
type MarketService struct {
	markets domain.MarketStore
	bets    domain.BetStore
	ledger  domain.LedgerStore
	cache   domain.MarketCache
	locks   domain.LockManager
	bus     domain.SignalBus
	audit   domain.AuditStore
	clock   domain.Clock
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	bets domain.BetStore,
	ledger domain.LedgerStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		bets:    bets,
		ledger:  ledger,
		cache:   cache,
		locks:   locks,
		bus:     bus,
		audit:   audit,
		clock:   clock,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// CreateMarket validates the admin's inputs, derives the deterministic
// market identifier, and stores the new market as active with empty pools.
func (s *MarketService) CreateMarket(ctx context.Context, p domain.CreateMarketParams) (domain.Market, error) {
	now := s.clock.Now()

	if err := p.Validate(now); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	m := domain.Market{
		ID:              domain.DeriveMarketID(p.Admin, p.SideA, p.SideB, p.LockTime),
		Title:           p.Title,
		Description:     p.Description,
		SideA:           p.SideA,
		SideB:           p.SideB,
		LockTime:        p.LockTime,
		SettlementTime:  p.SettlementTime,
		Status:          domain.MarketStatusActive,
		Winner:          domain.WinnerNone,
		Admin:           p.Admin,
		ResultAuthority: p.ResultAuthority,
		CreatedAt:       now,
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create %s: %w", m.ID, err)
	}

	s.publishMarketEvent(ctx, domain.EventMarketCreated, m, now)
	s.auditLog(ctx, domain.EventMarketCreated, map[string]any{
		"market_id": m.ID,
		"admin":     m.Admin,
		"side_a":    m.SideA,
		"side_b":    m.SideB,
		"lock_time": m.LockTime,
	})

	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", m.ID),
		slog.String("admin", m.Admin),
	)

	return m, nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the store on a miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return m, nil
}

// ListActive returns active markets directly from the store.
func (s *MarketService) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListByStatus(ctx, domain.MarketStatusActive, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list active: %w", err)
	}
	return markets, nil
}

// CancelMarket is the admin abort path: every active bet is refunded, pools
// drain to zero, and the market becomes cancelled. Only the market admin may
// cancel, and only while the market is still active.
func (s *MarketService) CancelMarket(ctx context.Context, marketID, admin string) error {
	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), lockTTL)
	if err != nil {
		return fmt.Errorf("market_service: cancel %s: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("market_service: cancel %s: %w", marketID, err)
	}

	if admin != m.Admin {
		return fmt.Errorf("market_service: cancel %s: %w", marketID, domain.ErrNotAdmin)
	}
	switch m.Status {
	case domain.MarketStatusActive:
	case domain.MarketStatusSettled:
		return fmt.Errorf("market_service: cancel %s: %w", marketID, domain.ErrAlreadySettled)
	default:
		return fmt.Errorf("market_service: cancel %s: %w", marketID, domain.ErrMarketNotActive)
	}

	active, err := s.bets.ListActive(ctx, marketID)
	if err != nil {
		return fmt.Errorf("market_service: cancel %s: %w", marketID, err)
	}
	refundedIDs := make([]string, 0, len(active))
	for _, b := range active {
		refundedIDs = append(refundedIDs, b.ID)
	}

	now := s.clock.Now()
	m.SettledAt = &now
	if err := s.ledger.Cancel(ctx, m, refundedIDs); err != nil {
		return fmt.Errorf("market_service: cancel %s: %w", marketID, err)
	}

	m.Status = domain.MarketStatusCancelled
	m.PoolA, m.PoolB = 0, 0
	s.invalidate(ctx, marketID)
	s.publishMarketEvent(ctx, domain.EventMarketCancelled, m, now)
	s.auditLog(ctx, domain.EventMarketCancelled, map[string]any{
		"market_id": marketID,
		"refunded":  len(refundedIDs),
	})

	s.logger.InfoContext(ctx, "market cancelled",
		slog.String("market_id", marketID),
		slog.Int("refunded_bets", len(refundedIDs)),
	)
	return nil
}

func (s *MarketService) invalidate(ctx context.Context, marketID string) {
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) publishMarketEvent(ctx context.Context, event string, m domain.Market, at time.Time) {
	payload, err := json.Marshal(domain.MarketEvent{
		Event:    event,
		MarketID: m.ID,
		Status:   string(m.Status),
		Winner:   string(m.Winner),
		PoolA:    m.PoolA,
		PoolB:    m.PoolB,
		At:       at,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelMarkets, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("event", event),
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
