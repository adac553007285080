package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

type fakeTradeStore struct {
	mu      sync.Mutex
	trades  []domain.TradeRecord
	listErr error
	delErr  error
}

func (s *fakeTradeStore) Insert(ctx context.Context, trade domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

func (s *fakeTradeStore) InsertBatch(ctx context.Context, trades []domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trades...)
	return nil
}

func (s *fakeTradeStore) ListByVenue(ctx context.Context, venue domain.Venue, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *fakeTradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TradeRecord
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	if s.delErr != nil {
		return 0, s.delErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.TradeRecord
	var deleted int64
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.trades = kept
	return deleted, nil
}

type fakeBlobWriter struct {
	mu     sync.Mutex
	puts   map[string][]byte
	putErr error
}

func newFakeBlobWriter() *fakeBlobWriter {
	return &fakeBlobWriter{puts: make(map[string][]byte)}
}

func (w *fakeBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.putErr != nil {
		return w.putErr
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.puts[path] = buf
	return nil
}

func (w *fakeBlobWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return w.Put(ctx, path, data, "")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func tradeAt(id string, executed time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		ID:         id,
		OrderID:    "order-" + id,
		Venue:      domain.VenueBinance,
		Symbol:     "BTCUSDT",
		Side:       domain.OrderSideBuy,
		Quantity:   0.5,
		Price:      50000,
		ExecutedAt: executed,
	}
}

func TestArchiveOnceExportsAndPrunes(t *testing.T) {
	store := &fakeTradeStore{}
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	require.NoError(t, store.Insert(context.Background(), tradeAt("t1", old)))
	require.NoError(t, store.Insert(context.Background(), tradeAt("t2", old.Add(time.Hour))))
	require.NoError(t, store.Insert(context.Background(), tradeAt("t3", recent)))

	writer := newFakeBlobWriter()
	arch := New(store, writer, 24*time.Hour, time.Hour, discardLogger())

	count, err := arch.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Recent trade survives the prune.
	remaining, err := store.ListBefore(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "t3", remaining[0].ID)

	require.Len(t, writer.puts, 1)
	for _, payload := range writer.puts {
		lines := bytes.Split(bytes.TrimSpace(payload), []byte("\n"))
		require.Len(t, lines, 2)
		var rec domain.TradeRecord
		require.NoError(t, json.Unmarshal(lines[0], &rec))
		assert.Equal(t, "t1", rec.ID)
	}
}

func TestArchiveOnceNothingToArchive(t *testing.T) {
	store := &fakeTradeStore{}
	require.NoError(t, store.Insert(context.Background(), tradeAt("t1", time.Now())))

	writer := newFakeBlobWriter()
	arch := New(store, writer, 24*time.Hour, time.Hour, discardLogger())

	count, err := arch.ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.puts)
}

func TestArchiveOnceUploadFailureKeepsRows(t *testing.T) {
	store := &fakeTradeStore{}
	require.NoError(t, store.Insert(context.Background(), tradeAt("t1", time.Now().Add(-48*time.Hour))))

	writer := newFakeBlobWriter()
	writer.putErr = errors.New("bucket unavailable")
	arch := New(store, writer, 24*time.Hour, time.Hour, discardLogger())

	_, err := arch.ArchiveOnce(context.Background())
	require.Error(t, err)

	remaining, err := store.ListBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestArchiveOnceListFailure(t *testing.T) {
	store := &fakeTradeStore{listErr: errors.New("connection reset")}
	arch := New(store, newFakeBlobWriter(), 24*time.Hour, time.Hour, discardLogger())

	_, err := arch.ArchiveOnce(context.Background())
	require.Error(t, err)
}
