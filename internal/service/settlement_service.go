package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/matchpool/matchpool/internal/domain"
)

// SettlementService applies oracle results and pays out winners. Settlement
// is single-fire: the first accepted result transitions the market to
// settled and every later submission fails.
type SettlementService struct {
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

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	markets domain.MarketStore,
	bets domain.BetStore,
	ledger domain.LedgerStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clock domain.Clock,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		markets: markets,
		bets:    bets,
		ledger:  ledger,
		cache:   cache,
		locks:   locks,
		bus:     bus,
		audit:   audit,
		clock:   clock,
		logger:  logger.With(slog.String("component", "settlement_service")),
	}
}

// SubmitResult records the outcome reported by the market's result
// authority. Only the designated authority may submit, only once the
// settlement time has been reached, and only while the market is active.
// A side winner marks that side's active bets won and the other side's lost.
// A draw refunds every remaining active bet and drains both pools.
func (s *SettlementService) SubmitResult(ctx context.Context, marketID, authority string, outcome domain.Outcome) (domain.Market, error) {
	winner, err := outcome.Winner()
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, err)
	}

	unlock, err := s.locks.Acquire(ctx, marketLockKey(marketID), lockTTL)
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, err)
	}
	defer unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, err)
	}

	if authority != m.ResultAuthority {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, domain.ErrUnauthorizedAuthority)
	}
	switch m.Status {
	case domain.MarketStatusActive:
	case domain.MarketStatusSettled:
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, domain.ErrAlreadySettled)
	default:
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, domain.ErrMarketNotActive)
	}
	now := s.clock.Now()
	if now.Before(m.LockTime) {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, domain.ErrEventNotReady)
	}
	if now.Before(m.SettlementTime) {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, domain.ErrResultTooEarly)
	}

	active, err := s.bets.ListActive(ctx, marketID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, err)
	}

	var wonIDs, lostIDs, refundedIDs []string
	switch winner {
	case domain.WinnerDraw:
		// No winning side exists, so every remaining stake goes back.
		for _, b := range active {
			refundedIDs = append(refundedIDs, b.ID)
		}
		m.PoolA, m.PoolB = 0, 0
	default:
		winningSide := domain.BetSideA
		if winner == domain.WinnerSideB {
			winningSide = domain.BetSideB
		}
		for _, b := range active {
			if b.Side == winningSide {
				wonIDs = append(wonIDs, b.ID)
			} else {
				lostIDs = append(lostIDs, b.ID)
			}
		}
	}

	m.Winner = winner
	m.SettledAt = &now
	if err := s.ledger.Settle(ctx, m, wonIDs, lostIDs, refundedIDs); err != nil {
		return domain.Market{}, fmt.Errorf("settlement_service: submit for %s: %w", marketID, err)
	}
	m.Status = domain.MarketStatusSettled

	s.invalidate(ctx, marketID)
	s.publishSettled(ctx, m)
	s.auditLog(ctx, domain.EventMarketSettled, map[string]any{
		"market_id": marketID,
		"winner":    string(winner),
		"won":       len(wonIDs),
		"lost":      len(lostIDs),
		"refunded":  len(refundedIDs),
	})

	s.logger.InfoContext(ctx, "market settled",
		slog.String("market_id", marketID),
		slog.String("winner", string(winner)),
		slog.Int("won", len(wonIDs)),
		slog.Int("lost", len(lostIDs)),
		slog.Int("refunded", len(refundedIDs)),
	)
	return m, nil
}

// Claim pays out one won bet to its owner. The transition won -> claimed
// fires exactly once; a repeat claim fails with ErrAlreadyClaimed.
func (s *SettlementService) Claim(ctx context.Context, betID, bettor string) (payout uint64, err error) {
	b, err := s.bets.GetByID(ctx, betID)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: claim %s: %w", betID, err)
	}
	if bettor != b.Bettor {
		return 0, fmt.Errorf("settlement_service: claim %s: %w", betID, domain.ErrNotBetOwner)
	}

	switch b.Status {
	case domain.BetStatusWon:
	case domain.BetStatusClaimed:
		return 0, fmt.Errorf("settlement_service: claim %s: %w", betID, domain.ErrAlreadyClaimed)
	default:
		return 0, fmt.Errorf("settlement_service: claim %s: %w", betID, domain.ErrNothingToClaim)
	}

	now := s.clock.Now()
	if err := s.ledger.Claim(ctx, b, now); err != nil {
		return 0, fmt.Errorf("settlement_service: claim %s: %w", betID, err)
	}

	b.Status = domain.BetStatusClaimed
	payout = domain.WinPayout(b.Amount)

	s.publishClaim(ctx, b, payout, now)
	s.auditLog(ctx, domain.EventPayoutClaimed, map[string]any{
		"market_id": b.MarketID,
		"bet_id":    b.ID,
		"bettor":    b.Bettor,
		"amount":    b.Amount,
		"payout":    payout,
	})

	s.logger.InfoContext(ctx, "payout claimed",
		slog.String("bet_id", b.ID),
		slog.String("market_id", b.MarketID),
		slog.Uint64("payout", payout),
	)
	return payout, nil
}

// Entitlement reports what a bet is currently owed: the 1.95x payout for a
// won bet, the stake for a refunded bet, zero otherwise.
func (s *SettlementService) Entitlement(ctx context.Context, betID string) (uint64, error) {
	b, err := s.bets.GetByID(ctx, betID)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: entitlement %s: %w", betID, err)
	}
	switch b.Status {
	case domain.BetStatusWon:
		return domain.WinPayout(b.Amount), nil
	case domain.BetStatusRefunded:
		return b.Amount, nil
	default:
		return 0, nil
	}
}

func (s *SettlementService) invalidate(ctx context.Context, marketID string) {
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

// publishSettled fans the settlement out on pub/sub and appends it to the
// durable stream so consumers that were offline can catch up.
func (s *SettlementService) publishSettled(ctx context.Context, m domain.Market) {
	payload, err := json.Marshal(domain.MarketEvent{
		Event:    domain.EventMarketSettled,
		MarketID: m.ID,
		Status:   string(m.Status),
		Winner:   string(m.Winner),
		PoolA:    m.PoolA,
		PoolB:    m.PoolB,
		At:       *m.SettledAt,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelSettlements, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamSettlements, payload); err != nil {
		s.logger.WarnContext(ctx, "stream append failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SettlementService) publishClaim(ctx context.Context, b domain.Bet, payout uint64, at time.Time) {
	payload, err := json.Marshal(domain.ClaimEvent{
		Event:    domain.EventPayoutClaimed,
		MarketID: b.MarketID,
		BetID:    b.ID,
		Bettor:   b.Bettor,
		Amount:   b.Amount,
		Payout:   payout,
		At:       at,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelSettlements, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("bet_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SettlementService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
