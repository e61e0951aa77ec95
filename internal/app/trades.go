package app

import (
	"math"
	"sort"
	"time"

	"traderDashboard/internal/domain"
)

// BuildTrades turns historical orders and their positions' deals into closed
// trades, one per position.
//
// Orders are grouped by position ID; the earliest order of a position gives
// direction, symbol, volume and open data. Trading deals of the position
// complete the trade: the earliest entry deal opened the position, so its
// side, price and time override the order's, which may be the closing order
// when the position opened before the history window. Closing deals
// give the volume-weighted close price, the latest close time and the summed
// profit. Orders that already carry close data (exchanges that report closed
// positions directly) need no deals. Positions with no close time are still
// open and are skipped, as are positions without a buy or sell direction.
// The result is sorted by close time.
func BuildTrades(orders []domain.Order, dealsByPosition map[string][]domain.Deal) []domain.Trade {
	byPosition := make(map[string][]domain.Order)
	var ids []string
	for _, o := range orders {
		id := positionKey(o)
		if id == "" {
			continue
		}
		if _, ok := byPosition[id]; !ok {
			ids = append(ids, id)
		}
		byPosition[id] = append(byPosition[id], o)
	}

	trades := make([]domain.Trade, 0, len(ids))
	for _, id := range ids {
		if t, ok := buildTrade(id, byPosition[id], dealsByPosition[id]); ok {
			trades = append(trades, t)
		}
	}
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].CloseTime.Equal(trades[j].CloseTime) {
			return trades[i].Ticket < trades[j].Ticket
		}
		return trades[i].CloseTime.Before(trades[j].CloseTime)
	})
	return trades
}

// positionsNeedingDeals lists, in first-seen order, the positions with at
// least one order lacking close data.
func positionsNeedingDeals(orders []domain.Order) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, o := range orders {
		id := positionKey(o)
		if id == "" || seen[id] || hasCloseData(o) {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func positionKey(o domain.Order) string {
	if o.PositionID != "" {
		return o.PositionID
	}
	return o.ID
}

func hasCloseData(o domain.Order) bool {
	return !o.CloseTime.IsZero() && isFinite(o.ClosePrice) && isFinite(o.Profit)
}

func buildTrade(id string, orders []domain.Order, deals []domain.Deal) (domain.Trade, bool) {
	sort.SliceStable(orders, func(i, j int) bool { return earlier(orders[i].OpenTime, orders[j].OpenTime) })
	opening := orders[0]

	t := domain.Trade{
		Ticket:     id,
		Direction:  opening.Type,
		Volume:     opening.Volume,
		Symbol:     opening.Symbol,
		OpenPrice:  opening.OpenPrice,
		ClosePrice: math.NaN(),
		Profit:     math.NaN(),
		OpenTime:   opening.OpenTime,
	}
	if hasCloseData(opening) {
		t.ClosePrice = opening.ClosePrice
		t.Profit = opening.Profit
		t.CloseTime = opening.CloseTime
	}

	var (
		entryVolume  float64
		closeVolume  float64
		closeValue   float64
		closeProfit  float64
		lastPrice    = math.NaN()
		closingDeals int
		profitSeen   bool
		entrySeen    bool
	)
	deals = append([]domain.Deal(nil), deals...)
	sort.SliceStable(deals, func(i, j int) bool { return earlier(deals[i].Time, deals[j].Time) })
	for _, d := range deals {
		if !d.Type.IsTrading() {
			continue
		}
		switch {
		case d.Entry == domain.DealEntryIn:
			first := !entrySeen
			entrySeen = true
			if first && (d.Side == domain.Buy || d.Side == domain.Sell) {
				t.Direction = d.Side
			}
			if isFinite(d.Price) && (first || !isFinite(t.OpenPrice)) {
				t.OpenPrice = d.Price
			}
			if !d.Time.IsZero() && (first || t.OpenTime.IsZero()) {
				t.OpenTime = d.Time
			}
			if t.Symbol == "" {
				t.Symbol = d.Symbol
			}
			if isFinite(d.Volume) && d.Volume > 0 {
				entryVolume += d.Volume
			}
		case d.Entry.Closes():
			closingDeals++
			if isFinite(d.Profit) {
				closeProfit += d.Profit
				profitSeen = true
			}
			if isFinite(d.Price) {
				lastPrice = d.Price
				if isFinite(d.Volume) && d.Volume > 0 {
					closeVolume += d.Volume
					closeValue += d.Price * d.Volume
				}
			}
			if d.Time.After(t.CloseTime) {
				t.CloseTime = d.Time
			}
		}
	}

	if closingDeals > 0 {
		t.Profit = math.NaN()
		if profitSeen {
			t.Profit = closeProfit
		}
		t.ClosePrice = lastPrice
		if closeVolume > 0 {
			t.ClosePrice = closeValue / closeVolume
		}
	}
	if (!isFinite(t.Volume) || t.Volume <= 0) && entryVolume > 0 {
		t.Volume = entryVolume
	}
	if t.Direction != domain.Buy && t.Direction != domain.Sell {
		return domain.Trade{}, false
	}
	if t.CloseTime.IsZero() {
		return domain.Trade{}, false
	}
	return t, true
}

// earlier orders times ascending with zero times last.
func earlier(a, b time.Time) bool {
	if a.IsZero() != b.IsZero() {
		return !a.IsZero()
	}
	return a.Before(b)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
