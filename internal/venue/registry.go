// Package venue provides the keyed registry of venue client implementations.
package venue

import (
	"github.com/alanyoungcy/tradedesk/internal/domain"
)

// Registry maps venue identifiers to their client implementations. It is
// built once at startup and passed by pointer to every consumer; it is
// read-only after construction.
type Registry struct {
	clients map[domain.Venue]domain.VenueClient
}

// NewRegistry creates a Registry from the given clients, keyed by each
// client's self-reported venue.
func NewRegistry(clients ...domain.VenueClient) *Registry {
	m := make(map[domain.Venue]domain.VenueClient, len(clients))
	for _, c := range clients {
		m[c.Venue()] = c
	}
	return &Registry{clients: m}
}

// Get returns the client for the given venue, or false when none is
// registered.
func (r *Registry) Get(v domain.Venue) (domain.VenueClient, bool) {
	c, ok := r.clients[v]
	return c, ok
}

// Venues returns all registered venue identifiers.
func (r *Registry) Venues() []domain.Venue {
	out := make([]domain.Venue, 0, len(r.clients))
	for v := range r.clients {
		out = append(out, v)
	}
	return out
}
