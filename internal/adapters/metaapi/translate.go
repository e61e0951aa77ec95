package metaapi

import (
	"math"
	"strings"
	"time"

	"traderDashboard/internal/domain"
)

type accountInformation struct {
	Platform   string   `json:"platform"`
	Broker     string   `json:"broker"`
	Currency   string   `json:"currency"`
	Server     string   `json:"server"`
	Balance    *float64 `json:"balance"`
	Equity     *float64 `json:"equity"`
	Margin     *float64 `json:"margin"`
	FreeMargin *float64 `json:"freeMargin"`
	Leverage   *float64 `json:"leverage"`
}

type historyOrder struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	State      string   `json:"state"`
	Symbol     string   `json:"symbol"`
	Time       string   `json:"time"`
	DoneTime   string   `json:"doneTime"`
	OpenPrice  *float64 `json:"openPrice"`
	Volume     *float64 `json:"volume"`
	PositionID string   `json:"positionId"`
}

type historyOrdersResponse struct {
	HistoryOrders []historyOrder `json:"historyOrders"`
	Synchronizing bool           `json:"synchronizing"`
}

type historyDeal struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	EntryType  string   `json:"entryType"`
	Symbol     string   `json:"symbol"`
	Time       string   `json:"time"`
	Volume     *float64 `json:"volume"`
	Price      *float64 `json:"price"`
	Profit     *float64 `json:"profit"`
	Commission *float64 `json:"commission"`
	Swap       *float64 `json:"swap"`
	PositionID string   `json:"positionId"`
	OrderID    string   `json:"orderId"`
}

type historyDealsResponse struct {
	HistoryDeals  []historyDeal `json:"historyDeals"`
	Synchronizing bool          `json:"synchronizing"`
}

func (info accountInformation) toDomain() *domain.AccountSnapshot {
	return &domain.AccountSnapshot{
		Balance:    valueOr(info.Balance, math.NaN()),
		Equity:     valueOr(info.Equity, math.NaN()),
		Margin:     valueOr(info.Margin, 0),
		FreeMargin: valueOr(info.FreeMargin, 0),
		Leverage:   valueOr(info.Leverage, 0),
		Currency:   info.Currency,
		Server:     info.Server,
		Platform:   domain.Platform(strings.ToLower(info.Platform)),
	}
}

// toDomain translates an order. MetaTrader orders carry no close data; the
// caller completes it from the position's deals.
func (o historyOrder) toDomain() domain.Order {
	return domain.Order{
		ID:         o.ID,
		Type:       translateOrderType(o.Type),
		Volume:     valueOr(o.Volume, math.NaN()),
		Symbol:     o.Symbol,
		OpenPrice:  valueOr(o.OpenPrice, math.NaN()),
		ClosePrice: math.NaN(),
		Profit:     math.NaN(),
		OpenTime:   parseTime(firstNonEmpty(o.DoneTime, o.Time)),
		PositionID: o.PositionID,
	}
}

func (r historyDealsResponse) toDomain() []domain.Deal {
	deals := make([]domain.Deal, 0, len(r.HistoryDeals))
	for _, d := range r.HistoryDeals {
		deals = append(deals, domain.Deal{
			ID:         d.ID,
			Type:       translateDealType(d.Type),
			Entry:      translateDealEntry(d.EntryType),
			Side:       translateDealSide(d.Type),
			PositionID: d.PositionID,
			Symbol:     d.Symbol,
			Volume:     valueOr(d.Volume, 0),
			Price:      valueOr(d.Price, math.NaN()),
			Profit:     valueOr(d.Profit, math.NaN()),
			Commission: valueOr(d.Commission, 0),
			Swap:       valueOr(d.Swap, 0),
			Time:       parseTime(d.Time),
		})
	}
	return deals
}

// translateOrderType maps ORDER_TYPE_BUY, ORDER_TYPE_BUY_LIMIT, ... to a
// direction. Non-trading order types map to "".
func translateOrderType(t string) domain.Direction {
	switch {
	case strings.HasPrefix(t, "ORDER_TYPE_BUY"):
		return domain.Buy
	case strings.HasPrefix(t, "ORDER_TYPE_SELL"):
		return domain.Sell
	default:
		return ""
	}
}

// translateDealSide gives the execution side of DEAL_TYPE_BUY and
// DEAL_TYPE_SELL deals.
func translateDealSide(t string) domain.Direction {
	switch t {
	case "DEAL_TYPE_BUY":
		return domain.Buy
	case "DEAL_TYPE_SELL":
		return domain.Sell
	default:
		return ""
	}
}

func translateDealType(t string) domain.DealType {
	switch t {
	case "DEAL_TYPE_BUY", "DEAL_TYPE_SELL":
		return domain.DealTypeTrade
	case "DEAL_TYPE_BALANCE":
		return domain.DealTypeBalance
	case "DEAL_TYPE_CREDIT":
		return domain.DealTypeCredit
	case "DEAL_TYPE_CHARGE":
		return domain.DealTypeCharge
	case "DEAL_TYPE_CORRECTION":
		return domain.DealTypeCorrection
	case "DEAL_TYPE_BONUS":
		return domain.DealTypeBonus
	case "DEAL_TYPE_INTEREST":
		return domain.DealTypeInterest
	}
	if strings.HasPrefix(t, "DEAL_TYPE_COMMISSION") || strings.HasPrefix(t, "DEAL_AGENT") {
		return domain.DealTypeCommission
	}
	return domain.DealTypeUnknown
}

func translateDealEntry(e string) domain.DealEntry {
	switch e {
	case "DEAL_ENTRY_IN":
		return domain.DealEntryIn
	case "DEAL_ENTRY_OUT":
		return domain.DealEntryOut
	case "DEAL_ENTRY_INOUT":
		return domain.DealEntryInOut
	case "DEAL_ENTRY_OUT_BY":
		return domain.DealEntryOutBy
	default:
		return domain.DealEntryUnknown
	}
}

// parseTime parses an ISO-8601 timestamp; unparseable input yields the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
