// Package sizing computes order quantities from account balance using
// fixed-fraction money management.
package sizing

import (
	"context"
	"log/slog"
	"math"

	"github.com/alanyoungcy/tradedesk/internal/domain"
	"github.com/alanyoungcy/tradedesk/internal/venue"
)

// Sizer resolves order quantities for signals that arrive without an explicit
// quantity. The risk amount is a fixed percentage of the venue's available
// balance, converted to units at the current price and rounded to 8 decimals.
//
// Sizing degrades gracefully: any failure to fetch a balance or a price, or a
// non-positive price, yields quantity 0. The caller treats 0 as "skip this
// signal", never as an error.
type Sizer struct {
	registry           *venue.Registry
	prices             domain.PriceCache // optional; venue client is the fallback
	maxPositionSizePct float64
	logger             *slog.Logger
}

// New creates a Sizer. prices may be nil, in which case every price lookup
// goes to the venue client.
func New(registry *venue.Registry, prices domain.PriceCache, maxPositionSizePct float64, logger *slog.Logger) *Sizer {
	return &Sizer{
		registry:           registry,
		prices:             prices,
		maxPositionSizePct: maxPositionSizePct,
		logger:             logger.With(slog.String("component", "position_sizer")),
	}
}

// CalculateQuantity returns the order quantity for the signal, or 0 when the
// signal should be skipped.
func (s *Sizer) CalculateQuantity(ctx context.Context, sig domain.TradeSignal) float64 {
	client, ok := s.registry.Get(sig.Venue)
	if !ok {
		s.logger.Warn("no client for venue, sizing to zero",
			slog.String("venue", string(sig.Venue)),
		)
		return 0
	}

	balance, err := client.GetAccountBalance(ctx)
	if err != nil {
		s.logger.Warn("balance fetch failed, sizing to zero",
			slog.String("venue", string(sig.Venue)),
			slog.String("error", err.Error()),
		)
		return 0
	}

	price := s.currentPrice(ctx, client, sig)
	if price <= 0 {
		s.logger.Warn("no usable price, sizing to zero",
			slog.String("venue", string(sig.Venue)),
			slog.String("symbol", sig.Symbol),
			slog.Float64("price", price),
		)
		return 0
	}

	riskAmount := balance.Available * (s.maxPositionSizePct / 100)
	return round8(riskAmount / price)
}

// currentPrice prefers the cache and falls back to the venue client. A cache
// miss is normal; a venue failure surfaces as price 0.
func (s *Sizer) currentPrice(ctx context.Context, client domain.VenueClient, sig domain.TradeSignal) float64 {
	if s.prices != nil {
		if price, _, err := s.prices.GetPrice(ctx, sig.Venue, sig.Symbol); err == nil && price > 0 {
			return price
		}
	}

	price, err := client.GetCurrentPrice(ctx, sig.Symbol)
	if err != nil {
		s.logger.Warn("price fetch failed",
			slog.String("venue", string(sig.Venue)),
			slog.String("symbol", sig.Symbol),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return price
}

// round8 rounds to 8 fractional digits, the finest quantity step the desk
// places.
func round8(x float64) float64 {
	return math.Round(x*1e8) / 1e8
}
