package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// PriceMarker is the mark-to-market entry point on the position book.
type PriceMarker interface {
	UpdatePositionPrice(venue domain.Venue, symbol string, price float64)
}

// Router fans one tick out to the position book and the price cache using the
// mid price. Cache failures are logged and do not stop mark-to-market
// updates.
type Router struct {
	book   PriceMarker
	prices domain.PriceCache // optional
	logger *slog.Logger
}

// NewRouter creates a Router. prices may be nil.
func NewRouter(book PriceMarker, prices domain.PriceCache, logger *slog.Logger) *Router {
	return &Router{
		book:   book,
		prices: prices,
		logger: logger.With(slog.String("component", "tick_router")),
	}
}

// Handle implements TickerHandler.
func (r *Router) Handle(ctx context.Context, tick domain.Ticker) {
	mid := tick.Mid()
	if mid <= 0 {
		return
	}

	r.book.UpdatePositionPrice(tick.Venue, tick.Symbol, mid)

	if r.prices != nil {
		ts := time.UnixMilli(tick.Timestamp)
		if tick.Timestamp == 0 {
			ts = time.Now().UTC()
		}
		if err := r.prices.SetPrice(ctx, tick.Venue, tick.Symbol, mid, ts); err != nil {
			r.logger.Warn("price cache write failed",
				slog.String("venue", string(tick.Venue)),
				slog.String("symbol", tick.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}
