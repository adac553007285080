// Package executor runs the signal execution pipeline: each inbound trade
// signal passes a risk gate, quantity resolution, and a dry-run gate before
// being placed on its venue, and every confirmed fill is recorded into the
// position book and the accounting engine.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradedesk/internal/domain"
	"github.com/alanyoungcy/tradedesk/internal/venue"
)

// RiskGate validates whether a venue has headroom for another position.
type RiskGate interface {
	ValidateRiskLimits(venue domain.Venue) bool
}

// FillRecorder mutates the position book after a confirmed fill.
type FillRecorder interface {
	RiskGate
	RecordFill(venue domain.Venue, symbol string, side domain.OrderSide, quantity, price float64)
}

// QuantitySizer resolves the quantity for signals that arrive without one.
type QuantitySizer interface {
	CalculateQuantity(ctx context.Context, sig domain.TradeSignal) float64
}

// TradeRecorder receives one TradeRecord per confirmed fill.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, trade domain.TradeRecord)
}

// Executor reads trade signals from a channel and drives each through the
// pipeline. Signals are processed independently: a venue failure or gate
// rejection for one signal never affects another, and no failure inside the
// pipeline leaves partial state behind.
type Executor struct {
	signalCh   <-chan domain.TradeSignal
	registry   *venue.Registry
	book       FillRecorder
	sizer      QuantitySizer
	accounting TradeRecorder
	audit      domain.AuditStore // optional
	dedup      *Dedup
	dryRun     bool
	logger     *slog.Logger

	cleanupInterval time.Duration
}

// New creates an Executor reading from signalCh. With dryRun set, intended
// orders are logged and never reach a venue.
func New(
	signalCh <-chan domain.TradeSignal,
	registry *venue.Registry,
	book FillRecorder,
	sizer QuantitySizer,
	accounting TradeRecorder,
	dryRun bool,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		signalCh:        signalCh,
		registry:        registry,
		book:            book,
		sizer:           sizer,
		accounting:      accounting,
		dedup:           NewDedup(2 * time.Minute),
		dryRun:          dryRun,
		logger:          logger.With(slog.String("component", "executor")),
		cleanupInterval: 30 * time.Second,
	}
}

// WithAudit attaches the optional audit store.
func (e *Executor) WithAudit(audit domain.AuditStore) *Executor {
	e.audit = audit
	return e
}

// Run processes signals until the context is cancelled, then drains any
// signals already buffered in the channel so they are not silently dropped.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor started", slog.Bool("dry_run", e.dryRun))
	defer e.logger.Info("executor stopped")

	cleanupTicker := time.NewTicker(e.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.drain()
			return ctx.Err()

		case sig, ok := <-e.signalCh:
			if !ok {
				return nil
			}
			e.Process(ctx, sig)

		case <-cleanupTicker.C:
			e.dedup.Cleanup()
		}
	}
}

// Process drives one signal through the pipeline. It never returns an error:
// every expected failure mode terminates the signal with a log line and no
// state change.
func (e *Executor) Process(ctx context.Context, sig domain.TradeSignal) {
	log := e.logger.With(
		slog.String("signal_id", sig.ID),
		slog.String("venue", string(sig.Venue)),
		slog.String("symbol", sig.Symbol),
		slog.String("side", string(sig.Side)),
	)

	if e.dedup.IsDuplicate(sig.ID) {
		log.Debug("signal deduplicated, skipping")
		return
	}

	// 1. Risk gate.
	if !e.book.ValidateRiskLimits(sig.Venue) {
		log.Warn("risk limit reached, skipping signal")
		return
	}

	// 2. Quantity resolution.
	quantity := e.resolveQuantity(ctx, sig)
	if quantity <= 0 {
		log.Warn("resolved quantity is zero, skipping signal")
		return
	}

	order := domain.Order{
		ID:         uuid.New().String(),
		SignalID:   sig.ID,
		Venue:      sig.Venue,
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		Type:       sig.Type,
		Quantity:   quantity,
		LimitPrice: sig.LimitPrice,
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	// 3. Dry-run gate: log the intended order, touch nothing.
	if e.dryRun {
		log.Info("dry run, order not placed",
			slog.String("order_id", order.ID),
			slog.String("type", string(order.Type)),
			slog.Float64("quantity", order.Quantity),
		)
		return
	}

	// 4. Placement.
	client, ok := e.registry.Get(sig.Venue)
	if !ok {
		log.Error("no client registered for venue")
		return
	}

	result, err := client.PlaceOrder(ctx, order)
	if err != nil {
		log.Error("order placement failed", slog.String("error", err.Error()))
		return
	}
	if !result.Success {
		log.Warn("order rejected by venue",
			slog.String("venue_order_id", result.VenueOrderID),
			slog.String("status", string(result.Status)),
			slog.String("message", result.Message),
		)
		e.auditEvent(ctx, "order_rejected", map[string]any{
			"order_id": order.ID,
			"venue":    string(order.Venue),
			"symbol":   order.Symbol,
			"message":  result.Message,
		})
		return
	}

	// 5. Post-fill recording. Only a result carrying an actual fill mutates
	// local state.
	if result.FilledQuantity <= 0 || result.AverageFillPrice == nil {
		log.Info("order accepted without fill",
			slog.String("venue_order_id", result.VenueOrderID),
			slog.String("status", string(result.Status)),
		)
		return
	}

	fillPrice := *result.AverageFillPrice
	e.book.RecordFill(sig.Venue, sig.Symbol, sig.Side, result.FilledQuantity, fillPrice)

	fee := 0.0
	if result.Fee != nil {
		fee = *result.Fee
	}
	e.accounting.RecordTrade(ctx, domain.TradeRecord{
		ID:           uuid.New().String(),
		OrderID:      order.ID,
		VenueOrderID: result.VenueOrderID,
		SignalID:     sig.ID,
		Venue:        sig.Venue,
		Symbol:       sig.Symbol,
		Side:         sig.Side,
		Quantity:     result.FilledQuantity,
		Price:        fillPrice,
		Fee:          fee,
		FeeAsset:     result.FeeAsset,
		ExecutedAt:   time.Now().UTC(),
	})

	e.auditEvent(ctx, "order_filled", map[string]any{
		"order_id":       order.ID,
		"venue_order_id": result.VenueOrderID,
		"venue":          string(order.Venue),
		"symbol":         order.Symbol,
		"side":           string(order.Side),
		"quantity":       result.FilledQuantity,
		"price":          fillPrice,
	})

	log.Info("order filled",
		slog.String("venue_order_id", result.VenueOrderID),
		slog.Float64("filled_quantity", result.FilledQuantity),
		slog.Float64("fill_price", fillPrice),
	)
}

// resolveQuantity uses the signal's explicit quantity when present, otherwise
// asks the sizer.
func (e *Executor) resolveQuantity(ctx context.Context, sig domain.TradeSignal) float64 {
	if sig.Quantity != nil {
		return *sig.Quantity
	}
	return e.sizer.CalculateQuantity(ctx, sig)
}

func (e *Executor) auditEvent(ctx context.Context, event string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(ctx, event, detail); err != nil {
		e.logger.Warn("audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// drain processes signals already buffered in the channel after cancellation.
// A short-lived context bounds external calls during shutdown.
func (e *Executor) drain() {
	for {
		select {
		case sig, ok := <-e.signalCh:
			if !ok {
				return
			}
			e.logger.Warn("draining signal after shutdown", slog.String("signal_id", sig.ID))
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			e.Process(drainCtx, sig)
			cancel()
		default:
			return
		}
	}
}
