package domain

import "time"

// AccountBalance is a point-in-time balance snapshot reported by a venue.
// Each update overwrites the previous snapshot for that venue.
type AccountBalance struct {
	Venue         Venue
	Total         float64
	Available     float64
	UnrealizedPnL float64
	Currency      string
	UpdatedAt     time.Time
}

// PnLSnapshot is a derived profit-and-loss summary for one venue.
// RealizedPnL is carried for completeness but is always zero in the local
// snapshot: the desk has no close-leg accounting yet.
type PnLSnapshot struct {
	Venue         Venue
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalFees     float64
	TradeCount    int
}

// Net returns realized + unrealized - fees.
func (s PnLSnapshot) Net() float64 {
	return s.RealizedPnL + s.UnrealizedPnL - s.TotalFees
}

// ReconciliationReport compares the locally computed P&L against the last
// venue-reported snapshot. Exchange is nil when no balance has ever been
// stored for the venue; that absence is never treated as divergence.
type ReconciliationReport struct {
	Venue    Venue
	Local    PnLSnapshot
	Exchange *PnLSnapshot
	Diverged bool
}
