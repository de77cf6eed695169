package service

import (
	"context"
	"log/slog"
	"time"
)

// BalanceSweeper drives the balance pass on a timer: in every tick it asks
// the store for markets past their lock time that have not been balanced and
// runs the pass on each. Running multiple sweepers is safe because each pass
// takes the per-market lock and the balanced flag is single-fire.
type BalanceSweeper struct {
	balance *BalanceService
	pollDur time.Duration
	logger  *slog.Logger
}

// NewBalanceSweeper creates a BalanceSweeper. pollInterval is how often to
// look for markets due a balance pass.
func NewBalanceSweeper(balance *BalanceService, pollInterval time.Duration, logger *slog.Logger) *BalanceSweeper {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &BalanceSweeper{
		balance: balance,
		pollDur: pollInterval,
		logger:  logger.With(slog.String("component", "balance_sweeper")),
	}
}

// Run polls until the context is cancelled. Call in a goroutine.
func (s *BalanceSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollDur)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := s.balance.RunDue(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "balance sweep failed", slog.String("error", err.Error()))
				continue
			}
			if done > 0 {
				s.logger.InfoContext(ctx, "balance sweep complete", slog.Int("markets", done))
			}
		}
	}
}
