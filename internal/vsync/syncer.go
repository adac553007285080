// Package vsync runs the periodic per-venue reconciliation drivers. Each
// venue gets its own timer loop that pulls the venue's positions and balance,
// feeds them into the position book and accounting engine, and raises an
// alert when the reconciliation report diverges.
package vsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradedesk/internal/domain"
	"github.com/alanyoungcy/tradedesk/internal/venue"
)

// PositionSyncer receives the venue-reported position list for drift
// detection.
type PositionSyncer interface {
	SyncPositions(venue domain.Venue, external []domain.Position)
}

// Reconciler stores balances and produces reconciliation reports.
type Reconciler interface {
	UpdateBalance(venue domain.Venue, balance domain.AccountBalance)
	GetReconciliationReport(venue domain.Venue) domain.ReconciliationReport
}

// Alerter delivers divergence notifications.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Syncer drives one reconciliation loop per registered venue. Venues are
// fully isolated: one venue's API failure or divergence never blocks or
// corrupts another venue's cycle.
type Syncer struct {
	registry *venue.Registry
	book     PositionSyncer
	engine   Reconciler
	alerter  Alerter // optional
	bus      domain.SignalBus
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Syncer polling each venue every interval.
func New(registry *venue.Registry, book PositionSyncer, engine Reconciler, interval time.Duration, logger *slog.Logger) *Syncer {
	return &Syncer{
		registry: registry,
		book:     book,
		engine:   engine,
		interval: interval,
		logger:   logger.With(slog.String("component", "venue_sync")),
	}
}

// WithAlerter attaches the optional divergence alerter.
func (s *Syncer) WithAlerter(a Alerter) *Syncer {
	s.alerter = a
	return s
}

// WithBus attaches the optional signal bus for reconciliation events.
func (s *Syncer) WithBus(bus domain.SignalBus) *Syncer {
	s.bus = bus
	return s
}

// Run starts one loop per venue and blocks until the context is cancelled.
// Per-venue loops only return on cancellation; cycle errors are logged and
// the loop continues.
func (s *Syncer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, v := range s.registry.Venues() {
		g.Go(func() error {
			return s.runVenue(ctx, v)
		})
	}
	return g.Wait()
}

func (s *Syncer) runVenue(ctx context.Context, v domain.Venue) error {
	log := s.logger.With(slog.String("venue", string(v)))
	log.Info("reconciliation loop started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reconciliation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.SyncOnce(ctx, v)
		}
	}
}

// SyncOnce runs a single reconciliation cycle for one venue. Safe to call
// repeatedly and concurrently with the execution pipeline.
func (s *Syncer) SyncOnce(ctx context.Context, v domain.Venue) {
	log := s.logger.With(slog.String("venue", string(v)))

	client, ok := s.registry.Get(v)
	if !ok {
		log.Error("no client registered for venue")
		return
	}

	external, err := client.GetOpenPositions(ctx)
	if err != nil {
		log.Warn("position fetch failed, skipping position sync", slog.String("error", err.Error()))
	} else {
		s.book.SyncPositions(v, external)
	}

	balance, err := client.GetAccountBalance(ctx)
	if err != nil {
		log.Warn("balance fetch failed, skipping balance update", slog.String("error", err.Error()))
	} else {
		s.engine.UpdateBalance(v, balance)
	}

	report := s.engine.GetReconciliationReport(v)
	if !report.Diverged {
		return
	}

	title := fmt.Sprintf("P&L divergence on %s", v)
	message := fmt.Sprintf("local unrealized %.4f vs venue %.4f",
		report.Local.UnrealizedPnL, report.Exchange.UnrealizedPnL)

	if s.alerter != nil {
		if err := s.alerter.Notify(ctx, "reconciliation_divergence", title, message); err != nil {
			log.Warn("divergence alert failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":            "reconciliation_divergence",
			"venue":            string(v),
			"local_unrealized": report.Local.UnrealizedPnL,
			"venue_unrealized": report.Exchange.UnrealizedPnL,
		})
		if err := s.bus.Publish(ctx, "reconciliation", evt); err != nil {
			log.Warn("divergence event publish failed", slog.String("error", err.Error()))
		}
	}
}
