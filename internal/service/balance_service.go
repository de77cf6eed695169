package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/matchpool/matchpool/internal/domain"
)

// BalanceResult summarizes one balance pass over a market.
type BalanceResult struct {
	// HeavySide is the side that carried the surplus before the pass. Empty
	// when the pools were already equal.
	HeavySide domain.BetSide
	// Refunded is the number of bets refunded.
	Refunded int
	// RefundedTotal is the sum refunded across those bets.
	RefundedTotal uint64
	// Residual is the absolute pool difference remaining after the pass.
	// Whole-bet refunds may overshoot, so the residual can favor either side.
	Residual uint64
}

// BalanceService runs the post-lock pool equalization pass. The pass refunds
// bets from the heavy side, most recent first, until the refunded total
// covers the pre-pass imbalance. A market is balanced at most once.
type BalanceService struct {
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

// NewBalanceService creates a BalanceService.
func NewBalanceService(
	markets domain.MarketStore,
	bets domain.BetStore,
	ledger domain.LedgerStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	logger *slog.Logger,
) *BalanceService {
	return &BalanceService{
		markets: markets,
		bets:    bets,
		ledger:  ledger,
		cache:   cache,
		locks:   locks,
		bus:     bus,
		audit:   audit,
		clock:   clock,
		logger:  logger.With(slog.String("component", "balance_service")),
	}
}

// Run balances one market. Each no-op condition reports its own error so the
// caller knows which gate fired: a non-active market is ErrMarketNotActive, a
// market whose balancing pass already ran is ErrAlreadyBalanced, and a run
// before the lock time is ErrEventNotReady. A run that finds the pools
// already equal is not an error; it records the pass and returns a zero
// result.
func (s *BalanceService) Run(ctx context.Context, marketID string) (BalanceResult, error) {
	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), lockTTL)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, err)
	}

	if m.Status != domain.MarketStatusActive {
		return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, domain.ErrMarketNotActive)
	}
	if m.Balanced {
		return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, domain.ErrAlreadyBalanced)
	}
	now := s.clock.Now()
	if now.Before(m.LockTime) {
		return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, domain.ErrEventNotReady)
	}

	heavy, imbalance := m.Imbalance()
	if imbalance == 0 {
		// Equal pools: record the pass so it never reruns, refund nothing.
		m.Balanced = true
		if err := s.ledger.ApplyRefunds(ctx, m, nil); err != nil {
			return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, err)
		}
		s.invalidate(ctx, marketID)
		s.logger.InfoContext(ctx, "pools already equal", slog.String("market_id", marketID))
		return BalanceResult{}, nil
	}

	candidates, err := s.bets.ListActiveBySide(ctx, marketID, heavy)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, err)
	}

	plan := domain.PlanRefunds(candidates, imbalance)

	var total uint64
	for _, b := range plan {
		total += b.Amount
	}

	m.Balanced = true
	if heavy == domain.BetSideA {
		m.PoolA -= total
	} else {
		m.PoolB -= total
	}
	if err := s.ledger.ApplyRefunds(ctx, m, plan); err != nil {
		return BalanceResult{}, fmt.Errorf("balance_service: run %s: %w", marketID, err)
	}

	_, residual := m.Imbalance()
	res := BalanceResult{
		HeavySide:     heavy,
		Refunded:      len(plan),
		RefundedTotal: total,
		Residual:      residual,
	}

	s.invalidate(ctx, marketID)
	for _, b := range plan {
		s.publishBetEvent(ctx, b)
	}
	s.auditLog(ctx, map[string]any{
		"market_id":      marketID,
		"heavy_side":     string(heavy),
		"refunded_bets":  res.Refunded,
		"refunded_total": res.RefundedTotal,
		"residual":       res.Residual,
	})

	s.logger.InfoContext(ctx, "market balanced",
		slog.String("market_id", marketID),
		slog.String("heavy_side", string(heavy)),
		slog.Int("refunded_bets", res.Refunded),
		slog.Uint64("refunded_total", res.RefundedTotal),
		slog.Uint64("residual", res.Residual),
	)
	return res, nil
}

// RunDue balances every active market whose lock time has passed and whose
// balance pass has not run yet. Errors on individual markets are logged and
// do not stop the sweep.
func (s *BalanceService) RunDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	due, err := s.markets.ListBalanceDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("balance_service: list due: %w", err)
	}

	var done int
	for _, m := range due {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if _, err := s.Run(ctx, m.ID); err != nil {
			s.logger.WarnContext(ctx, "balance pass failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		done++
	}
	return done, nil
}

func (s *BalanceService) invalidate(ctx context.Context, marketID string) {
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *BalanceService) publishBetEvent(ctx context.Context, b domain.Bet) {
	payload, err := json.Marshal(domain.BetEvent{
		Event:    domain.EventBetRefunded,
		MarketID: b.MarketID,
		BetID:    b.ID,
		Bettor:   b.Bettor,
		Side:     string(b.Side),
		Amount:   b.Amount,
		At:       s.clock.Now(),
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelBets, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("bet_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *BalanceService) auditLog(ctx context.Context, detail map[string]any) {
	if err := s.audit.Log(ctx, domain.EventBalanceRun, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("error", err.Error()),
		)
	}
}
