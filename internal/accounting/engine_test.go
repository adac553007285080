package accounting

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradedesk/internal/domain"
	"github.com/alanyoungcy/tradedesk/internal/ledger"
)

// stubBook returns canned open positions per venue.
type stubBook struct {
	positions map[domain.Venue][]domain.Position
}

func (b *stubBook) GetOpenPositions(venue domain.Venue) []domain.Position {
	return b.positions[venue]
}

func newEngine(threshold float64, book PositionReader) (*Engine, *ledger.Ledger) {
	l := ledger.New()
	if book == nil {
		book = &stubBook{}
	}
	return New(l, book, threshold, slog.New(slog.DiscardHandler)), l
}

func TestRecordTradeAppendsToLedger(t *testing.T) {
	e, l := newEngine(1, nil)

	e.RecordTrade(context.Background(), domain.TradeRecord{
		ID:         "t1",
		Venue:      domain.VenueBinance,
		Symbol:     "BTCUSDT",
		Side:       domain.OrderSideBuy,
		Quantity:   1,
		Price:      50000,
		Fee:        2.5,
		ExecutedAt: time.Now().UTC(),
	})

	got := l.GetAll(domain.VenueBinance)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}

func TestGetLocalPnLSnapshot(t *testing.T) {
	book := &stubBook{positions: map[domain.Venue][]domain.Position{
		domain.VenueBinance: {
			{Venue: domain.VenueBinance, Symbol: "BTCUSDT", UnrealizedPnL: 120},
			{Venue: domain.VenueBinance, Symbol: "ETHUSDT", UnrealizedPnL: -20},
		},
	}}
	e, _ := newEngine(1, book)

	now := time.Now().UTC()
	e.RecordTrade(context.Background(), domain.TradeRecord{ID: "t1", Venue: domain.VenueBinance, Fee: 1.5, ExecutedAt: now})
	e.RecordTrade(context.Background(), domain.TradeRecord{ID: "t2", Venue: domain.VenueBinance, Fee: 0.5, ExecutedAt: now})
	e.RecordTrade(context.Background(), domain.TradeRecord{ID: "t3", Venue: domain.VenueBybit, Fee: 9, ExecutedAt: now})

	snap := e.GetLocalPnLSnapshot(domain.VenueBinance)
	assert.Zero(t, snap.RealizedPnL)
	assert.Equal(t, 100.0, snap.UnrealizedPnL)
	assert.Equal(t, 2.0, snap.TotalFees)
	assert.Equal(t, 2, snap.TradeCount)
	assert.Equal(t, 98.0, snap.Net())
}

func TestGetExchangePnLSnapshotAbsentUntilBalanceStored(t *testing.T) {
	e, _ := newEngine(1, nil)

	_, ok := e.GetExchangePnLSnapshot(domain.VenueBinance)
	assert.False(t, ok)

	e.UpdateBalance(domain.VenueBinance, domain.AccountBalance{
		Venue:         domain.VenueBinance,
		UnrealizedPnL: 42,
	})

	snap, ok := e.GetExchangePnLSnapshot(domain.VenueBinance)
	require.True(t, ok)
	assert.Equal(t, 42.0, snap.UnrealizedPnL)
}

func TestUpdateBalanceOverwrites(t *testing.T) {
	e, _ := newEngine(1, nil)

	e.UpdateBalance(domain.VenueBinance, domain.AccountBalance{UnrealizedPnL: 10})
	e.UpdateBalance(domain.VenueBinance, domain.AccountBalance{UnrealizedPnL: 20})

	snap, ok := e.GetExchangePnLSnapshot(domain.VenueBinance)
	require.True(t, ok)
	assert.Equal(t, 20.0, snap.UnrealizedPnL)
}

func TestReconciliationDivergence(t *testing.T) {
	book := &stubBook{positions: map[domain.Venue][]domain.Position{
		domain.VenueBinance: {{UnrealizedPnL: 100}},
	}}
	e, _ := newEngine(1.0, book)

	// Difference of 5 exceeds threshold 1.
	e.UpdateBalance(domain.VenueBinance, domain.AccountBalance{UnrealizedPnL: 105})
	report := e.GetReconciliationReport(domain.VenueBinance)
	require.NotNil(t, report.Exchange)
	assert.True(t, report.Diverged)

	// Difference of 0.5 is within threshold.
	e.UpdateBalance(domain.VenueBinance, domain.AccountBalance{UnrealizedPnL: 100.5})
	report = e.GetReconciliationReport(domain.VenueBinance)
	assert.False(t, report.Diverged)
}

func TestReconciliationAbsentSnapshotIsNotDivergence(t *testing.T) {
	book := &stubBook{positions: map[domain.Venue][]domain.Position{
		domain.VenueBinance: {{UnrealizedPnL: 1000}},
	}}
	e, _ := newEngine(1.0, book)

	report := e.GetReconciliationReport(domain.VenueBinance)
	assert.Nil(t, report.Exchange)
	assert.False(t, report.Diverged)
}
