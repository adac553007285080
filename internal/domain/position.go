package domain

import "time"

// PositionSide is the direction of an open exposure.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// PositionKey identifies a position. At most one position exists per key;
// the model does not carry a simultaneous long and short on the same pair.
type PositionKey struct {
	Venue  Venue
	Symbol string
}

// Position is one open exposure for a (venue, symbol) pair. Quantity is
// strictly positive for as long as the position exists; a position reduced to
// zero is removed, never stored empty.
type Position struct {
	Venue         Venue
	Symbol        string
	Side          PositionSide
	Quantity      float64
	EntryPrice    float64 // weighted-average cost basis
	CurrentPrice  float64 // latest mark
	UnrealizedPnL float64
	OpenedAt      time.Time
	UpdatedAt     time.Time
}

// Key returns the identity key for this position.
func (p Position) Key() PositionKey {
	return PositionKey{Venue: p.Venue, Symbol: p.Symbol}
}

// SideForOrder maps an order side to the position direction it opens:
// buys build long exposure, sells build short exposure.
func SideForOrder(side OrderSide) PositionSide {
	if side == OrderSideSell {
		return PositionSideShort
	}
	return PositionSideLong
}
