package domain

// Direction represents the side of a closed position (buy or sell).
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Platform identifies the trading platform a linked account lives on.
type Platform string

const (
	PlatformMT4     Platform = "mt4"
	PlatformMT5     Platform = "mt5"
	PlatformBinance Platform = "binance"
)

// Valid reports whether p is a platform the dashboard can fetch data for.
func (p Platform) Valid() bool {
	switch p {
	case PlatformMT4, PlatformMT5, PlatformBinance:
		return true
	default:
		return false
	}
}

// DealType classifies a ledger deal. The zero value is a trading deal.
type DealType string

const (
	DealTypeTrade      DealType = ""           // Buy/sell execution carrying trading P&L
	DealTypeBalance    DealType = "balance"    // Deposit or withdrawal
	DealTypeCredit     DealType = "credit"     // Broker credit
	DealTypeCharge     DealType = "charge"     // Additional charge (fees)
	DealTypeCorrection DealType = "correction" // Manual correction by the broker
	DealTypeBonus      DealType = "bonus"
	DealTypeCommission DealType = "commission"
	DealTypeInterest   DealType = "interest" // Interest, funding fee
	DealTypeUnknown    DealType = "unknown"
)

// IsTrading reports whether the deal's profit is trading P&L.
func (t DealType) IsTrading() bool {
	return t == DealTypeTrade
}

// DealEntry tells whether a deal opened or closed (part of) a position.
type DealEntry string

const (
	DealEntryUnknown DealEntry = ""
	DealEntryIn      DealEntry = "in"
	DealEntryOut     DealEntry = "out"
	DealEntryInOut   DealEntry = "inout"  // Reversal
	DealEntryOutBy   DealEntry = "out_by" // Closed by an opposite position
)

// Closes reports whether the deal realizes P&L on a position.
func (e DealEntry) Closes() bool {
	return e == DealEntryOut || e == DealEntryInOut || e == DealEntryOutBy
}
