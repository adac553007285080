package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradedesk/internal/domain"
	"github.com/alanyoungcy/tradedesk/internal/executor"
	"github.com/alanyoungcy/tradedesk/internal/feed"
	"github.com/alanyoungcy/tradedesk/internal/vsync"
)

// signalsChannel is the bus channel inbound trade signals arrive on.
const signalsChannel = "signals"

// TradeMode runs the execution pipeline: ticker feeds, signal consumption,
// and order placement.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startTrading(ctx, g, deps)
	return g.Wait()
}

// SyncMode runs only the per-venue reconciliation loops.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startSync(ctx, g, deps)
	return g.Wait()
}

// FullMode runs trading, reconciliation, and the trade archiver together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startTrading(ctx, g, deps)
	a.startSync(ctx, g, deps)

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	return g.Wait()
}

// startTrading launches the executor, the ticker feeds, and the inbound
// signal pump on the group.
func (a *App) startTrading(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	signalCh := make(chan domain.TradeSignal, 32)

	exec := executor.New(
		signalCh, deps.Registry, deps.Book, deps.Sizer, deps.Accounting,
		a.cfg.Execution.DryRun, a.logger,
	)
	if deps.AuditStore != nil {
		exec.WithAudit(deps.AuditStore)
	}
	g.Go(func() error {
		return exec.Run(ctx)
	})

	// Ticker feeds mark positions and keep the price cache warm.
	router := feed.NewRouter(deps.Book, deps.PriceCache, a.logger)
	for _, vc := range a.cfg.Venues {
		if !vc.Enabled || vc.WSURL == "" || len(vc.Symbols) == 0 {
			continue
		}
		wsFeed := feed.NewWSFeed(
			domain.Venue(strings.ToLower(vc.Name)),
			vc.WSURL, vc.Symbols, router.Handle, a.logger,
		)
		g.Go(func() error {
			return wsFeed.Run(ctx)
		})
	}

	if deps.SignalBus != nil {
		g.Go(func() error {
			return a.consumeSignals(ctx, deps.SignalBus, signalCh)
		})
	} else {
		a.logger.Warn("no signal bus configured, executor will idle")
	}
}

// startSync launches the reconciliation driver on the group.
func (a *App) startSync(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	syncer := vsync.New(
		deps.Registry, deps.Book, deps.Accounting,
		a.cfg.Sync.Interval.Duration, a.logger,
	).WithAlerter(deps.Notifier)
	if deps.SignalBus != nil {
		syncer.WithBus(deps.SignalBus)
	}
	g.Go(func() error {
		return syncer.Run(ctx)
	})
}

// consumeSignals subscribes to the signals channel and decodes each payload
// into a trade signal for the executor. Malformed payloads are logged and
// dropped; they never stop the pump.
func (a *App) consumeSignals(ctx context.Context, bus domain.SignalBus, out chan<- domain.TradeSignal) error {
	msgs, err := bus.Subscribe(ctx, signalsChannel)
	if err != nil {
		return err
	}
	a.logger.Info("signal pump started", slog.String("channel", signalsChannel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var sig domain.TradeSignal
			if err := json.Unmarshal(payload, &sig); err != nil {
				a.logger.Warn("malformed signal payload",
					slog.String("error", err.Error()))
				continue
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
