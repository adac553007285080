package executor

import (
	"sync"
	"time"
)

// Dedup prevents a trade signal from being executed more than once within a
// time-to-live window. Safe for concurrent use.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]time.Time // signal ID -> last seen
	ttl  time.Duration
}

// NewDedup creates a Dedup with the given TTL window.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// IsDuplicate reports whether the signal ID was seen within the TTL window.
// Unseen (or expired) IDs are recorded as seen.
func (d *Dedup) IsDuplicate(signalID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if last, ok := d.seen[signalID]; ok && now.Sub(last) < d.ttl {
		return true
	}
	d.seen[signalID] = now
	return false
}

// Cleanup drops entries older than the TTL. Called periodically by the
// pipeline loop to bound memory.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
}
