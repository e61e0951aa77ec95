package domain

import "time"

// Order is a historical order as reported by the account-data provider.
// Numeric fields the provider did not supply are NaN and missing times are
// the zero time; consumers must treat such records as incomplete.
type Order struct {
	ID         string
	Type       Direction
	Volume     float64
	Symbol     string
	OpenPrice  float64
	ClosePrice float64
	Profit     float64
	OpenTime   time.Time
	CloseTime  time.Time
	PositionID string
}
