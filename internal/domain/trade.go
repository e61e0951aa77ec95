package domain

import (
	"math"
	"time"
)

// Trade represents a closed position. It is settled history: values are
// passed by copy and never modified after construction.
type Trade struct {
	Ticket     string    // Opaque unique identifier (position ID on MetaTrader)
	Direction  Direction // buy or sell
	Volume     float64   // Lot size
	Symbol     string    // Instrument identifier
	OpenPrice  float64   // Entry price
	ClosePrice float64   // Exit price
	Profit     float64   // Realized P&L in account currency, may be zero
	OpenTime   time.Time // Timestamp when the position was opened
	CloseTime  time.Time // Timestamp when the position was closed
}

// DurationHours returns the whole number of hours the position was held.
// Out-of-order timestamps yield 0.
func (t Trade) DurationHours() int {
	if t.OpenTime.IsZero() || t.CloseTime.IsZero() || t.CloseTime.Before(t.OpenTime) {
		return 0
	}
	return int(math.Floor(t.CloseTime.Sub(t.OpenTime).Hours()))
}

// HasValidProfit reports whether the trade counts for aggregation: its
// profit must be a finite, non-zero number. Break-even trades are excluded.
func (t Trade) HasValidProfit() bool {
	return !math.IsNaN(t.Profit) && !math.IsInf(t.Profit, 0) && t.Profit != 0
}
