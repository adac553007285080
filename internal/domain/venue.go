package domain

import "context"

// Venue identifies a trading venue the desk executes against.
type Venue string

const (
	VenueBinance Venue = "binance"
	VenueBybit   Venue = "bybit"
	VenuePaper   Venue = "paper"
)

// Ticker is one price update pushed by a venue feed.
type Ticker struct {
	Venue     Venue
	Symbol    string
	Bid       float64
	Ask       float64
	Timestamp int64 // unix milliseconds
}

// Mid returns the arithmetic mean of best bid and best ask.
func (t Ticker) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// VenueClient is the boundary to a single venue's trading API. Implementations
// own transport, authentication, and retry policy; the core only consumes the
// results. Operations that cannot reach the venue return an error, while
// venue-side rejections are reported through OrderResult with Success=false.
type VenueClient interface {
	Venue() Venue
	PlaceOrder(ctx context.Context, order Order) (OrderResult, error)
	CancelOrder(ctx context.Context, venueOrderID, symbol string) (OrderResult, error)
	ModifyOrder(ctx context.Context, venueOrderID string, order Order) (OrderResult, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]Order, error)
	GetOpenPositions(ctx context.Context) ([]Position, error)
	GetAccountBalance(ctx context.Context) (AccountBalance, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}
