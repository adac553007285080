// Package ledger is the append-only in-memory store of executed fills.
package ledger

import (
	"sort"
	"strings"
	"sync"

	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// Ledger holds every TradeRecord appended during the process lifetime.
// Records are immutable once added; retrieval is always ordered by descending
// execution timestamp.
type Ledger struct {
	mu      sync.RWMutex
	records []domain.TradeRecord
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{}
}

// Add appends one trade record. Safe for concurrent use.
func (l *Ledger) Add(trade domain.TradeRecord) {
	l.mu.Lock()
	l.records = append(l.records, trade)
	l.mu.Unlock()
}

// GetAll returns trades ordered by descending timestamp. An empty venue
// returns trades across all venues.
func (l *Ledger) GetAll(venue domain.Venue) []domain.TradeRecord {
	return l.Query(venue, "", 0)
}

// Query returns trades filtered by venue and symbol, ordered by descending
// timestamp, with limit applied after ordering. Empty filters match
// everything; symbol matching is a case-insensitive exact match.
func (l *Ledger) Query(venue domain.Venue, symbol string, limit int) []domain.TradeRecord {
	l.mu.RLock()
	out := make([]domain.TradeRecord, 0, len(l.records))
	for _, tr := range l.records {
		if venue != "" && tr.Venue != venue {
			continue
		}
		if symbol != "" && !strings.EqualFold(tr.Symbol, symbol) {
			continue
		}
		out = append(out, tr)
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExecutedAt.After(out[j].ExecutedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns the number of records currently held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
