// Package book maintains the authoritative local record of open positions.
// It applies fills with weighted-average cost accounting, enforces per-venue
// position limits, marks positions to market, and detects drift against
// venue-reported snapshots without ever auto-correcting local state.
package book

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// qtyTolerance is the maximum quantity difference between a local position and
// the venue-reported one before SyncPositions flags a mismatch.
const qtyTolerance = 0.0001

// Book is the in-memory position book. Every mutation of a given
// (venue, symbol) key is serialized through a per-key mutex so that concurrent
// fills on the same key never lose an update; keys are independent of each
// other and there is no cross-venue lock.
type Book struct {
	maxOpenPositions int
	logger           *slog.Logger

	mu        sync.RWMutex
	positions map[domain.PositionKey]domain.Position

	keyLocks sync.Map // domain.PositionKey -> *sync.Mutex
}

// New creates an empty Book. maxOpenPositions is the per-venue limit enforced
// by ValidateRiskLimits.
func New(maxOpenPositions int, logger *slog.Logger) *Book {
	return &Book{
		maxOpenPositions: maxOpenPositions,
		logger:           logger.With(slog.String("component", "position_book")),
		positions:        make(map[domain.PositionKey]domain.Position),
	}
}

// lockKey returns the mutex serializing writers for one position key.
func (b *Book) lockKey(key domain.PositionKey) *sync.Mutex {
	mu, _ := b.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// RecordFill applies one executed fill to the book. Buys map to long exposure
// and sells to short. A fill in the same direction as the existing position
// recomputes the weighted-average entry price; a fill in the opposite
// direction reduces the position, removing it entirely when the reduction
// reaches or exceeds the open quantity (over-closes clamp to removal, they do
// not flip the side).
func (b *Book) RecordFill(venue domain.Venue, symbol string, side domain.OrderSide, quantity, price float64) {
	if quantity <= 0 || price <= 0 {
		b.logger.Warn("ignoring fill with non-positive quantity or price",
			slog.String("venue", string(venue)),
			slog.String("symbol", symbol),
			slog.Float64("quantity", quantity),
			slog.Float64("price", price),
		)
		return
	}

	key := domain.PositionKey{Venue: venue, Symbol: symbol}
	direction := domain.SideForOrder(side)
	now := time.Now().UTC()

	keyMu := b.lockKey(key)
	keyMu.Lock()
	defer keyMu.Unlock()

	b.mu.RLock()
	pos, exists := b.positions[key]
	b.mu.RUnlock()

	switch {
	case !exists:
		pos = domain.Position{
			Venue:        venue,
			Symbol:       symbol,
			Side:         direction,
			Quantity:     quantity,
			EntryPrice:   price,
			CurrentPrice: price,
			OpenedAt:     now,
			UpdatedAt:    now,
		}
		b.logger.Info("position opened",
			slog.String("venue", string(venue)),
			slog.String("symbol", symbol),
			slog.String("side", string(direction)),
			slog.Float64("quantity", quantity),
			slog.Float64("entry_price", price),
		)

	case pos.Side == direction:
		// Same direction: grow the position at a weighted-average cost basis.
		total := pos.Quantity + quantity
		pos.EntryPrice = (pos.EntryPrice*pos.Quantity + price*quantity) / total
		pos.Quantity = total
		pos.UpdatedAt = now
		b.logger.Info("position increased",
			slog.String("venue", string(venue)),
			slog.String("symbol", symbol),
			slog.Float64("quantity", pos.Quantity),
			slog.Float64("entry_price", pos.EntryPrice),
		)

	default:
		// Opposite direction: reduce. Reaching zero (or over-closing) removes
		// the entry; no zero-quantity residue is ever stored.
		pos.Quantity -= quantity
		pos.UpdatedAt = now
		if pos.Quantity <= 0 {
			b.mu.Lock()
			delete(b.positions, key)
			b.mu.Unlock()
			b.logger.Info("position closed",
				slog.String("venue", string(venue)),
				slog.String("symbol", symbol),
				slog.Float64("close_price", price),
			)
			return
		}
		b.logger.Info("position reduced",
			slog.String("venue", string(venue)),
			slog.String("symbol", symbol),
			slog.Float64("quantity", pos.Quantity),
		)
	}

	b.mu.Lock()
	b.positions[key] = pos
	b.mu.Unlock()
}

// ValidateRiskLimits reports whether the venue has headroom for one more open
// position. It returns false as soon as the open-position count reaches the
// configured maximum.
func (b *Book) ValidateRiskLimits(venue domain.Venue) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for key := range b.positions {
		if key.Venue == venue {
			count++
		}
	}
	if count >= b.maxOpenPositions {
		b.logger.Warn("risk limit reached",
			slog.String("venue", string(venue)),
			slog.Int("open", count),
			slog.Int("max", b.maxOpenPositions),
		)
		return false
	}
	return true
}

// GetOpenPositions returns a snapshot of open positions. An empty venue
// returns positions across all venues. Callers receive copies and never
// observe partial mutation.
func (b *Book) GetOpenPositions(venue domain.Venue) []domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Position, 0, len(b.positions))
	for key, pos := range b.positions {
		if venue != "" && key.Venue != venue {
			continue
		}
		out = append(out, pos)
	}
	return out
}

// UpdatePositionPrice sets the mark price for a position and recomputes its
// unrealized P&L. It is a no-op when no position exists for the key, which
// makes it safe against late or duplicate ticks.
func (b *Book) UpdatePositionPrice(venue domain.Venue, symbol string, price float64) {
	key := domain.PositionKey{Venue: venue, Symbol: symbol}

	keyMu := b.lockKey(key)
	keyMu.Lock()
	defer keyMu.Unlock()

	b.mu.RLock()
	pos, exists := b.positions[key]
	b.mu.RUnlock()
	if !exists {
		return
	}

	pos.CurrentPrice = price
	switch pos.Side {
	case domain.PositionSideLong:
		pos.UnrealizedPnL = (price - pos.EntryPrice) * pos.Quantity
	case domain.PositionSideShort:
		pos.UnrealizedPnL = (pos.EntryPrice - price) * pos.Quantity
	}
	pos.UpdatedAt = time.Now().UTC()

	b.mu.Lock()
	b.positions[key] = pos
	b.mu.Unlock()
}

// SyncPositions diffs the local book for one venue against the venue-reported
// position list. It is detection-only: mismatches are logged as warnings and
// local state is never touched, so the call is idempotent given unchanged
// inputs. Three cases are reported: a position known locally but absent on the
// venue (possible missed close), a position on the venue but absent locally
// (possible missed fill), and a quantity mismatch beyond qtyTolerance.
func (b *Book) SyncPositions(venue domain.Venue, external []domain.Position) {
	b.mu.RLock()
	local := make(map[domain.PositionKey]domain.Position)
	for key, pos := range b.positions {
		if key.Venue == venue {
			local[key] = pos
		}
	}
	b.mu.RUnlock()

	reported := make(map[domain.PositionKey]domain.Position, len(external))
	for _, pos := range external {
		key := domain.PositionKey{Venue: venue, Symbol: pos.Symbol}
		reported[key] = pos
	}

	for key, pos := range local {
		ext, ok := reported[key]
		if !ok {
			b.logger.Warn("position exists locally but not on venue",
				slog.String("venue", string(venue)),
				slog.String("symbol", key.Symbol),
				slog.Float64("local_quantity", pos.Quantity),
			)
			continue
		}
		if diff := pos.Quantity - ext.Quantity; diff > qtyTolerance || diff < -qtyTolerance {
			b.logger.Warn("position quantity mismatch",
				slog.String("venue", string(venue)),
				slog.String("symbol", key.Symbol),
				slog.Float64("local_quantity", pos.Quantity),
				slog.Float64("venue_quantity", ext.Quantity),
			)
		}
	}

	for key, ext := range reported {
		if _, ok := local[key]; !ok {
			b.logger.Warn("position exists on venue but not locally",
				slog.String("venue", string(venue)),
				slog.String("symbol", key.Symbol),
				slog.Float64("venue_quantity", ext.Quantity),
			)
		}
	}
}
