package domain

import "time"

// TradeRecord is the immutable record of one completed fill. It is created
// once per successful placement and appended to the trade ledger; it is never
// mutated afterwards.
type TradeRecord struct {
	ID           string
	OrderID      string
	VenueOrderID string
	SignalID     string // empty when the fill did not originate from a signal
	Venue        Venue
	Symbol       string
	Side         OrderSide
	Quantity     float64
	Price        float64
	Fee          float64
	FeeAsset     string
	ExecutedAt   time.Time
}
