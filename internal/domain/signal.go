package domain

import "time"

// SignalAction tells the pipeline what the signal wants done.
type SignalAction string

const (
	SignalActionOpen  SignalAction = "open"
	SignalActionClose SignalAction = "close"
)

// TradeSignal is one inbound trading instruction. Signals arrive already
// validated from the transport layer and are consumed exactly once by the
// execution pipeline; they are never mutated.
//
// Quantity is optional: a nil quantity asks the pipeline to size the order
// from the account balance. LimitPrice is optional and only meaningful for
// limit orders.
type TradeSignal struct {
	ID         string
	Venue      Venue
	Symbol     string
	Action     SignalAction
	Side       OrderSide
	Type       OrderType
	Quantity   *float64
	LimitPrice *float64
	Metadata   map[string]string
	CreatedAt  time.Time
}
