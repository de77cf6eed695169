package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/matchpool/matchpool/internal/domain"
	"github.com/matchpool/matchpool/internal/service"
)

// buildServices constructs the full service layer over the wired
// dependencies.
func (a *App) buildServices(deps *Dependencies) (*service.MarketService, *service.EscrowService, *service.BalanceService, *service.SettlementService) {
	marketSvc := service.NewMarketService(
		deps.MarketStore, deps.BetStore, deps.LedgerStore,
		deps.MarketCache, deps.LockManager, deps.SignalBus, deps.AuditStore,
		deps.Clock, a.logger,
	)
	escrowSvc := service.NewEscrowService(
		deps.MarketStore, deps.BetStore, deps.LedgerStore,
		deps.MarketCache, deps.LockManager, deps.RateLimiter,
		deps.SignalBus, deps.AuditStore, deps.Clock,
		service.EscrowConfig{
			MinStake:   a.cfg.Betting.MinStake,
			RateLimit:  a.cfg.Betting.RateLimit,
			RateWindow: a.cfg.Betting.RateWindow.Duration,
		},
		a.logger,
	)
	balanceSvc := service.NewBalanceService(
		deps.MarketStore, deps.BetStore, deps.LedgerStore,
		deps.MarketCache, deps.LockManager, deps.SignalBus, deps.AuditStore,
		deps.Clock, a.logger,
	)
	settlementSvc := service.NewSettlementService(
		deps.MarketStore, deps.BetStore, deps.LedgerStore,
		deps.MarketCache, deps.LockManager, deps.SignalBus, deps.AuditStore,
		deps.Clock, a.logger,
	)
	return marketSvc, escrowSvc, balanceSvc, settlementSvc
}

// DaemonMode runs the settlement core: the balance sweeper plus an event
// monitor that keeps a log trail of everything published on the bus.
func (a *App) DaemonMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting daemon mode")

	g, ctx := errgroup.WithContext(ctx)

	_, _, balanceSvc, _ := a.buildServices(deps)

	sweeper := service.NewBalanceSweeper(balanceSvc, a.cfg.Betting.SweepInterval.Duration, a.logger)
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	a.startEventMonitor(ctx, g, deps)

	return g.Wait()
}

// ArchiveMode runs a one-shot settlement archive pass and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	if deps.Archiver == nil {
		return fmt.Errorf("archive mode: no archiver wired; check s3 configuration")
	}

	cutoff := deps.Clock.Now().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	count, err := deps.Archiver.ArchiveSettled(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	a.logger.InfoContext(ctx, "settlement archive complete",
		slog.Int64("markets", count),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

// MonitorMode subscribes to the bus channels and logs everything until the
// context is cancelled.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startEventMonitor(ctx, g, deps)
	return g.Wait()
}

// startEventMonitor launches one consumer goroutine per bus channel.
func (a *App) startEventMonitor(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	channels := []string{
		domain.ChannelMarkets,
		domain.ChannelBets,
		domain.ChannelSettlements,
	}
	for _, channel := range channels {
		g.Go(func() error {
			ch, err := deps.SignalBus.Subscribe(ctx, channel)
			if err != nil {
				return fmt.Errorf("event monitor: subscribe %s: %w", channel, err)
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case payload, ok := <-ch:
					if !ok {
						return nil
					}
					a.logger.InfoContext(ctx, "bus event",
						slog.String("channel", channel),
						slog.String("payload", string(payload)),
					)
				}
			}
		})
	}
}
