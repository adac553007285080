package book

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

func newTestBook(maxOpen int) *Book {
	return New(maxOpen, slog.New(slog.DiscardHandler))
}

func TestRecordFillOpensPosition(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)

	positions := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, domain.PositionSideLong, pos.Side)
	assert.Equal(t, 1.0, pos.Quantity)
	assert.Equal(t, 50000.0, pos.EntryPrice)
	assert.Equal(t, 50000.0, pos.CurrentPrice)
}

func TestRecordFillWeightedAverage(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 60000)

	positions := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, positions, 1)
	assert.Equal(t, 2.0, positions[0].Quantity)
	assert.Equal(t, 55000.0, positions[0].EntryPrice)
}

func TestRecordFillWeightedAverageSequence(t *testing.T) {
	b := newTestBook(10)

	fills := []struct{ qty, price float64 }{
		{2, 100}, {3, 110}, {5, 95},
	}
	var sumQty, sumNotional float64
	for _, f := range fills {
		b.RecordFill(domain.VenueBybit, "ETHUSDT", domain.OrderSideSell, f.qty, f.price)
		sumQty += f.qty
		sumNotional += f.qty * f.price
	}

	positions := b.GetOpenPositions(domain.VenueBybit)
	require.Len(t, positions, 1)
	assert.Equal(t, domain.PositionSideShort, positions[0].Side)
	assert.Equal(t, sumQty, positions[0].Quantity)
	assert.InDelta(t, sumNotional/sumQty, positions[0].EntryPrice, 1e-9)
}

func TestRecordFillReducesOppositeDirection(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 3, 50000)
	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideSell, 1, 55000)

	positions := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, positions, 1)
	assert.Equal(t, domain.PositionSideLong, positions[0].Side)
	assert.Equal(t, 2.0, positions[0].Quantity)
	assert.Equal(t, 50000.0, positions[0].EntryPrice)
}

func TestRecordFillExactCloseRemovesPosition(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideSell, 1, 55000)

	assert.Empty(t, b.GetOpenPositions(domain.VenueBinance))
}

func TestRecordFillOverCloseClampsToRemoval(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
	// Selling more than the open quantity removes the entry, it does not flip
	// the position short.
	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideSell, 5, 55000)

	assert.Empty(t, b.GetOpenPositions(domain.VenueBinance))
}

func TestRecordFillIgnoresInvalidInputs(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 0, 50000)
	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, -1)

	assert.Empty(t, b.GetOpenPositions(domain.VenueBinance))
}

func TestValidateRiskLimits(t *testing.T) {
	b := newTestBook(2)

	assert.True(t, b.ValidateRiskLimits(domain.VenueBinance))

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
	assert.True(t, b.ValidateRiskLimits(domain.VenueBinance))

	b.RecordFill(domain.VenueBinance, "ETHUSDT", domain.OrderSideBuy, 1, 3000)
	// Exactly at the max is a rejection.
	assert.False(t, b.ValidateRiskLimits(domain.VenueBinance))

	// Limits are per venue.
	assert.True(t, b.ValidateRiskLimits(domain.VenueBybit))
}

func TestGetOpenPositionsFiltersByVenue(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
	b.RecordFill(domain.VenueBybit, "BTCUSDT", domain.OrderSideBuy, 2, 50100)

	binance := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, binance, 1)
	assert.Equal(t, domain.VenueBinance, binance[0].Venue)

	bybit := b.GetOpenPositions(domain.VenueBybit)
	require.Len(t, bybit, 1)
	assert.Equal(t, 2.0, bybit[0].Quantity)

	assert.Len(t, b.GetOpenPositions(""), 2)
}

func TestUpdatePositionPrice(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 2, 50000)
	b.UpdatePositionPrice(domain.VenueBinance, "BTCUSDT", 51000)

	positions := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, positions, 1)
	assert.Equal(t, 51000.0, positions[0].CurrentPrice)
	assert.Equal(t, 2000.0, positions[0].UnrealizedPnL)

	b.RecordFill(domain.VenueBinance, "ETHUSDT", domain.OrderSideSell, 3, 3000)
	b.UpdatePositionPrice(domain.VenueBinance, "ETHUSDT", 2900)

	for _, pos := range b.GetOpenPositions(domain.VenueBinance) {
		if pos.Symbol == "ETHUSDT" {
			assert.Equal(t, 300.0, pos.UnrealizedPnL)
		}
	}
}

func TestUpdatePositionPriceNoPosition(t *testing.T) {
	b := newTestBook(10)

	// Must not panic or create an entry.
	b.UpdatePositionPrice(domain.VenueBinance, "BTCUSDT", 51000)
	assert.Empty(t, b.GetOpenPositions(""))
}

func TestSyncPositionsNeverMutates(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
	before := b.GetOpenPositions(domain.VenueBinance)

	external := []domain.Position{
		{Venue: domain.VenueBinance, Symbol: "BTCUSDT", Quantity: 5},     // mismatch
		{Venue: domain.VenueBinance, Symbol: "SOLUSDT", Quantity: 10},    // missing locally
	}
	for i := 0; i < 3; i++ {
		b.SyncPositions(domain.VenueBinance, external)
	}

	after := b.GetOpenPositions(domain.VenueBinance)
	assert.Equal(t, before, after)
}

func TestSyncPositionsToleratesSmallQuantityDrift(t *testing.T) {
	b := newTestBook(10)

	b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
	external := []domain.Position{
		{Venue: domain.VenueBinance, Symbol: "BTCUSDT", Quantity: 1.00005},
	}

	// Within tolerance; nothing to assert beyond absence of mutation.
	b.SyncPositions(domain.VenueBinance, external)
	positions := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, positions, 1)
	assert.Equal(t, 1.0, positions[0].Quantity)
}

func TestRecordFillConcurrentSameKey(t *testing.T) {
	b := newTestBook(1000)

	const writers = 100
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			b.RecordFill(domain.VenueBinance, "BTCUSDT", domain.OrderSideBuy, 1, 50000)
		}()
	}
	wg.Wait()

	positions := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, positions, 1)
	assert.Equal(t, float64(writers), positions[0].Quantity)
	assert.Equal(t, 50000.0, positions[0].EntryPrice)
}

func TestRecordFillConcurrentDistinctKeys(t *testing.T) {
	b := newTestBook(1000)

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT"}
	var wg sync.WaitGroup
	for _, sym := range symbols {
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()
				b.RecordFill(domain.VenueBinance, sym, domain.OrderSideBuy, 2, 100)
			}(sym)
		}
	}
	wg.Wait()

	positions := b.GetOpenPositions(domain.VenueBinance)
	require.Len(t, positions, len(symbols))
	for _, pos := range positions {
		assert.Equal(t, 50.0, pos.Quantity)
	}
}
