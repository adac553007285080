package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

func record(id string, venue domain.Venue, symbol string, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		ID:         id,
		Venue:      venue,
		Symbol:     symbol,
		Side:       domain.OrderSideBuy,
		Quantity:   1,
		Price:      100,
		ExecutedAt: at,
	}
}

func TestGetAllOrdersByTimestampDescending(t *testing.T) {
	l := New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order.
	l.Add(record("b", domain.VenueBinance, "BTCUSDT", base.Add(time.Minute)))
	l.Add(record("c", domain.VenueBinance, "BTCUSDT", base.Add(2*time.Minute)))
	l.Add(record("a", domain.VenueBinance, "BTCUSDT", base))

	got := l.GetAll("")
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "a", got[2].ID)
}

func TestGetAllFiltersByVenue(t *testing.T) {
	l := New()
	now := time.Now().UTC()

	l.Add(record("1", domain.VenueBinance, "BTCUSDT", now))
	l.Add(record("2", domain.VenueBybit, "BTCUSDT", now))

	got := l.GetAll(domain.VenueBybit)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestQuerySymbolCaseInsensitive(t *testing.T) {
	l := New()
	now := time.Now().UTC()

	l.Add(record("1", domain.VenueBinance, "BTCUSDT", now))
	l.Add(record("2", domain.VenueBinance, "ETHUSDT", now))

	got := l.Query(domain.VenueBinance, "btcusdt", 0)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestQueryLimitAppliedAfterOrdering(t *testing.T) {
	l := New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		l.Add(record(string(rune('a'+i)), domain.VenueBinance, "BTCUSDT", base.Add(time.Duration(i)*time.Minute)))
	}

	got := l.Query(domain.VenueBinance, "", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "e", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestAddConcurrent(t *testing.T) {
	l := New()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add(record("x", domain.VenueBinance, "BTCUSDT", now))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, l.Len())
}
