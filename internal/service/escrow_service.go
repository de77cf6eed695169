package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

// EscrowConfig tunes bet acceptance.
type EscrowConfig struct {
	// MinStake is the smallest accepted bet amount. Zero disables the floor
	// beyond the amount > 0 rule.
	MinStake uint64
	// RateLimit and RateWindow bound how many bets a single bettor may place
	// within the window. RateLimit <= 0 disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// EscrowService accepts stakes into market pools.
type EscrowService struct {
	markets domain.MarketStore
	bets    domain.BetStore
	ledger  domain.LedgerStore
	cache   domain.MarketCache
	locks   domain.LockManager
	limiter domain.RateLimiter
	bus     domain.SignalBus
	audit   domain.AuditStore
	clock   domain.Clock
	cfg     EscrowConfig
	logger  *slog.Logger
}

// NewEscrowService creates an EscrowService.
func NewEscrowService(
	markets domain.MarketStore,
	bets domain.BetStore,
	ledger domain.LedgerStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	limiter domain.RateLimiter,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	cfg EscrowConfig,
	logger *slog.Logger,
) *EscrowService {
	return &EscrowService{
		markets: markets,
		bets:    bets,
		ledger:  ledger,
		cache:   cache,
		locks:   locks,
		limiter: limiter,
		bus:     bus,
		audit:   audit,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "escrow_service")),
	}
}

// PlaceBet escrows a stake on one side of an active market. The bet is
// rejected when the market is locked or missing, the amount is below the
// floor, the bettor is the market admin, or the bettor already holds an
// active bet on this market. The bet insert and the pool increment commit
// atomically.
func (s *EscrowService) PlaceBet(ctx context.Context, marketID, bettor string, side domain.BetSide, amount uint64) (domain.Bet, error) {
	if bettor == "" {
		return domain.Bet{}, fmt.Errorf("escrow_service: place: %w", domain.ErrEmptyIdentity)
	}
	if !side.Valid() {
		return domain.Bet{}, fmt.Errorf("escrow_service: place: %w", domain.ErrInvalidSide)
	}
	if amount == 0 || amount < s.cfg.MinStake {
		return domain.Bet{}, fmt.Errorf("escrow_service: place: %w", domain.ErrInvalidAmount)
	}

	if s.cfg.RateLimit > 0 {
		allowed, err := s.limiter.Allow(ctx, "bettor:"+bettor, s.cfg.RateLimit, s.cfg.RateWindow)
		if err != nil {
			s.logger.WarnContext(ctx, "rate limiter unavailable",
				slog.String("bettor", bettor),
				slog.String("error", err.Error()),
			)
		} else if !allowed {
			return domain.Bet{}, fmt.Errorf("escrow_service: place: %w", domain.ErrRateLimited)
		}
	}

	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), lockTTL)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("escrow_service: place on %s: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("escrow_service: place on %s: %w", marketID, err)
	}

	now := s.clock.Now()
	if m.Status != domain.MarketStatusActive {
		return domain.Bet{}, fmt.Errorf("escrow_service: place on %s: %w", marketID, domain.ErrMarketNotActive)
	}
	if !m.BettingOpen(now) {
		return domain.Bet{}, fmt.Errorf("escrow_service: place on %s: %w", marketID, domain.ErrMarketNotActive)
	}
	if bettor == m.Admin {
		return domain.Bet{}, fmt.Errorf("escrow_service: place on %s: %w", marketID, domain.ErrSelfBetForbidden)
	}

	newPool, err := domain.AddPool(m.Pool(side), amount)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("escrow_service: place on %s: %w", marketID, err)
	}
	if side == domain.BetSideA {
		m.PoolA = newPool
	} else {
		m.PoolB = newPool
	}

	b := domain.Bet{
		ID:       domain.NewBetID(),
		MarketID: marketID,
		Bettor:   bettor,
		Side:     side,
		Amount:   amount,
		PlacedAt: now,
		Status:   domain.BetStatusActive,
	}

	if err := s.ledger.PlaceBet(ctx, m, b); err != nil {
		return domain.Bet{}, fmt.Errorf("escrow_service: place on %s: %w", marketID, err)
	}

	s.invalidate(ctx, marketID)
	s.publishBetEvent(ctx, domain.EventBetPlaced, b)
	s.auditLog(ctx, domain.EventBetPlaced, map[string]any{
		"market_id": marketID,
		"bet_id":    b.ID,
		"bettor":    bettor,
		"side":      string(side),
		"amount":    amount,
	})

	s.logger.InfoContext(ctx, "bet placed",
		slog.String("market_id", marketID),
		slog.String("bet_id", b.ID),
		slog.String("side", string(side)),
		slog.Uint64("amount", amount),
	)
	return b, nil
}

// PoolTotals returns the current escrowed totals for both sides.
func (s *EscrowService) PoolTotals(ctx context.Context, marketID string) (poolA, poolB uint64, err error) {
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return 0, 0, fmt.Errorf("escrow_service: totals for %s: %w", marketID, err)
	}
	return m.PoolA, m.PoolB, nil
}

// ActiveBets lists a market's active bets in placement order.
func (s *EscrowService) ActiveBets(ctx context.Context, marketID string) ([]domain.Bet, error) {
	bets, err := s.bets.ListActive(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("escrow_service: active bets for %s: %w", marketID, err)
	}
	return bets, nil
}

func (s *EscrowService) invalidate(ctx context.Context, marketID string) {
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *EscrowService) publishBetEvent(ctx context.Context, event string, b domain.Bet) {
	payload, err := json.Marshal(domain.BetEvent{
		Event:    event,
		MarketID: b.MarketID,
		BetID:    b.ID,
		Bettor:   b.Bettor,
		Side:     string(b.Side),
		Amount:   b.Amount,
		At:       b.PlacedAt,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelBets, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("event", event),
			slog.String("bet_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *EscrowService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
