package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest mid price per venue and symbol.
type PriceCache interface {
	SetPrice(ctx context.Context, venue Venue, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, venue Venue, symbol string) (float64, time.Time, error)
}

// SignalBus provides pub/sub messaging between the desk's components and the
// outside world (inbound signals, outbound fill and reconciliation events).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
