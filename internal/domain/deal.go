package domain

import "time"

// Deal is a single ledger entry returned by the account-data provider.
type Deal struct {
	ID         string
	Type       DealType
	Entry      DealEntry
	Side       Direction // Execution side of a trading deal, empty otherwise
	PositionID string
	Symbol     string
	Volume     float64
	Price      float64
	Profit     float64 // Signed contribution to balance
	Commission float64
	Swap       float64
	Time       time.Time
}
