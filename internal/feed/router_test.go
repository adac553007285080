package feed

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

type fakeMarker struct {
	updates []struct {
		venue  domain.Venue
		symbol string
		price  float64
	}
}

func (m *fakeMarker) UpdatePositionPrice(v domain.Venue, symbol string, price float64) {
	m.updates = append(m.updates, struct {
		venue  domain.Venue
		symbol string
		price  float64
	}{v, symbol, price})
}

type recordingCache struct {
	prices map[string]float64
}

func (c *recordingCache) SetPrice(ctx context.Context, v domain.Venue, symbol string, price float64, ts time.Time) error {
	if c.prices == nil {
		c.prices = make(map[string]float64)
	}
	c.prices[string(v)+":"+symbol] = price
	return nil
}

func (c *recordingCache) GetPrice(ctx context.Context, v domain.Venue, symbol string) (float64, time.Time, error) {
	return 0, time.Time{}, domain.ErrNotFound
}

func TestHandleRoutesMidPrice(t *testing.T) {
	marker := &fakeMarker{}
	cache := &recordingCache{}
	r := NewRouter(marker, cache, slog.New(slog.DiscardHandler))

	r.Handle(context.Background(), domain.Ticker{
		Venue:     domain.VenueBinance,
		Symbol:    "BTCUSDT",
		Bid:       50000,
		Ask:       50010,
		Timestamp: time.Now().UnixMilli(),
	})

	require.Len(t, marker.updates, 1)
	assert.Equal(t, 50005.0, marker.updates[0].price)
	assert.Equal(t, 50005.0, cache.prices["binance:BTCUSDT"])
}

func TestHandleSkipsNonPositiveMid(t *testing.T) {
	marker := &fakeMarker{}
	r := NewRouter(marker, nil, slog.New(slog.DiscardHandler))

	r.Handle(context.Background(), domain.Ticker{Venue: domain.VenueBinance, Symbol: "BTCUSDT"})

	assert.Empty(t, marker.updates)
}
