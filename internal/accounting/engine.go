// Package accounting aggregates trade history into P&L snapshots and
// reconciles them against venue-reported balances.
package accounting

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"

	"github.com/alanyoungcy/tradedesk/internal/domain"
	"github.com/alanyoungcy/tradedesk/internal/ledger"
)

// PositionReader is the view of the position book the engine needs.
type PositionReader interface {
	GetOpenPositions(venue domain.Venue) []domain.Position
}

// Engine composes the trade ledger and the position book into local P&L
// snapshots, stores the latest venue-reported balance per venue, and produces
// reconciliation reports comparing the two.
//
// The durable trade store, audit store, and signal bus are optional; when set
// they receive a copy of every recorded trade, an audit entry, and a JSON
// fill event respectively. Their failures are logged and never propagate:
// local bookkeeping is the source of truth.
type Engine struct {
	ledger    *ledger.Ledger
	positions PositionReader
	threshold float64
	logger    *slog.Logger

	trades domain.TradeStore
	audit  domain.AuditStore
	bus    domain.SignalBus

	mu       sync.RWMutex
	balances map[domain.Venue]domain.AccountBalance
}

// New creates an Engine. threshold is the absolute unrealized-P&L difference
// above which a reconciliation report flags divergence.
func New(l *ledger.Ledger, positions PositionReader, threshold float64, logger *slog.Logger) *Engine {
	return &Engine{
		ledger:    l,
		positions: positions,
		threshold: threshold,
		logger:    logger.With(slog.String("component", "accounting")),
		balances:  make(map[domain.Venue]domain.AccountBalance),
	}
}

// WithStores attaches the optional durable trade archive and audit log.
func (e *Engine) WithStores(trades domain.TradeStore, audit domain.AuditStore) *Engine {
	e.trades = trades
	e.audit = audit
	return e
}

// WithBus attaches the optional signal bus for fill events.
func (e *Engine) WithBus(bus domain.SignalBus) *Engine {
	e.bus = bus
	return e
}

// RecordTrade appends the trade to the ledger, then best-effort archives,
// audits, and publishes it.
func (e *Engine) RecordTrade(ctx context.Context, trade domain.TradeRecord) {
	e.ledger.Add(trade)

	e.logger.Info("trade recorded",
		slog.String("trade_id", trade.ID),
		slog.String("venue", string(trade.Venue)),
		slog.String("symbol", trade.Symbol),
		slog.String("side", string(trade.Side)),
		slog.Float64("quantity", trade.Quantity),
		slog.Float64("price", trade.Price),
		slog.Float64("fee", trade.Fee),
	)

	if e.trades != nil {
		if err := e.trades.Insert(ctx, trade); err != nil {
			e.logger.Warn("trade archive write failed",
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if e.audit != nil {
		if err := e.audit.Log(ctx, "trade_recorded", map[string]any{
			"trade_id": trade.ID,
			"venue":    string(trade.Venue),
			"symbol":   trade.Symbol,
			"side":     string(trade.Side),
			"quantity": trade.Quantity,
			"price":    trade.Price,
			"fee":      trade.Fee,
		}); err != nil {
			e.logger.Warn("audit log failed",
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if e.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":    "fill",
			"trade_id": trade.ID,
			"venue":    string(trade.Venue),
			"symbol":   trade.Symbol,
			"side":     string(trade.Side),
			"quantity": trade.Quantity,
			"price":    trade.Price,
		})
		if err := e.bus.Publish(ctx, "fills", evt); err != nil {
			e.logger.Warn("fill event publish failed",
				slog.String("trade_id", trade.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// UpdateBalance overwrites the latest stored balance snapshot for the venue.
func (e *Engine) UpdateBalance(venue domain.Venue, balance domain.AccountBalance) {
	e.mu.Lock()
	e.balances[venue] = balance
	e.mu.Unlock()

	e.logger.Debug("balance updated",
		slog.String("venue", string(venue)),
		slog.Float64("total", balance.Total),
		slog.Float64("available", balance.Available),
		slog.Float64("unrealized_pnl", balance.UnrealizedPnL),
	)
}

// GetLocalPnLSnapshot builds a snapshot from the ledger and the position
// book. Realized P&L is always zero: the desk carries no close-leg
// accounting.
func (e *Engine) GetLocalPnLSnapshot(venue domain.Venue) domain.PnLSnapshot {
	snap := domain.PnLSnapshot{Venue: venue}

	for _, trade := range e.ledger.GetAll(venue) {
		snap.TotalFees += trade.Fee
		snap.TradeCount++
	}
	for _, pos := range e.positions.GetOpenPositions(venue) {
		snap.UnrealizedPnL += pos.UnrealizedPnL
	}
	return snap
}

// GetExchangePnLSnapshot derives a snapshot from the last venue-reported
// balance. The second return value is false when no balance has ever been
// stored for the venue.
func (e *Engine) GetExchangePnLSnapshot(venue domain.Venue) (domain.PnLSnapshot, bool) {
	e.mu.RLock()
	balance, ok := e.balances[venue]
	e.mu.RUnlock()
	if !ok {
		return domain.PnLSnapshot{}, false
	}
	return domain.PnLSnapshot{
		Venue:         venue,
		UnrealizedPnL: balance.UnrealizedPnL,
	}, true
}

// GetReconciliationReport compares the local snapshot against the venue's.
// Diverged is true only when an exchange snapshot exists and the absolute
// unrealized-P&L difference exceeds the threshold; a missing exchange
// snapshot is an absence, not a divergence.
func (e *Engine) GetReconciliationReport(venue domain.Venue) domain.ReconciliationReport {
	report := domain.ReconciliationReport{
		Venue: venue,
		Local: e.GetLocalPnLSnapshot(venue),
	}

	exchange, ok := e.GetExchangePnLSnapshot(venue)
	if !ok {
		return report
	}
	report.Exchange = &exchange

	if diff := math.Abs(report.Local.UnrealizedPnL - exchange.UnrealizedPnL); diff > e.threshold {
		report.Diverged = true
		e.logger.Warn("reconciliation divergence",
			slog.String("venue", string(venue)),
			slog.Float64("local_unrealized", report.Local.UnrealizedPnL),
			slog.Float64("venue_unrealized", exchange.UnrealizedPnL),
			slog.Float64("difference", diff),
			slog.Float64("threshold", e.threshold),
		)
	}
	return report
}
