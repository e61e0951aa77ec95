package binanceclient

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"traderDashboard/internal/domain"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// --- Translation Helpers ---

func translateAccount(acc *futures.Account) *domain.AccountSnapshot {
	if acc == nil {
		return nil
	}
	return &domain.AccountSnapshot{
		Balance:    parseAmount(acc.TotalWalletBalance),
		Equity:     parseAmount(acc.TotalMarginBalance),
		Margin:     orZero(parseAmount(acc.TotalInitialMargin)),
		FreeMargin: orZero(parseAmount(acc.AvailableBalance)),
		Currency:   "USDT",
		Platform:   domain.PlatformBinance,
	}
}

func translateIncome(in *futures.IncomeHistory) domain.Deal {
	d := domain.Deal{
		ID:     strconv.FormatInt(in.TranID, 10),
		Type:   translateIncomeType(in.IncomeType),
		Symbol: in.Symbol,
		Price:  math.NaN(),
		Profit: parseAmount(in.Income),
		Time:   time.UnixMilli(in.Time).UTC(),
	}
	if d.Type == domain.DealTypeTrade {
		d.Entry = domain.DealEntryOut
	}
	return d
}

// translateIncomeType maps Binance futures income types onto ledger deal types.
func translateIncomeType(t string) domain.DealType {
	switch t {
	case "REALIZED_PNL":
		return domain.DealTypeTrade
	case "TRANSFER", "INTERNAL_TRANSFER", "CROSS_COLLATERAL_TRANSFER", "COIN_SWAP_DEPOSIT", "COIN_SWAP_WITHDRAW":
		return domain.DealTypeBalance
	case "COMMISSION", "COMMISSION_REBATE", "API_REBATE", "REFERRAL_KICKBACK":
		return domain.DealTypeCommission
	case "FUNDING_FEE":
		return domain.DealTypeInterest
	case "WELCOME_BONUS", "CONTEST_REWARD", "POSITION_LIMIT_INCREASE_FEE", "STRATEGY_UMFUTURES_TRANSFER":
		return domain.DealTypeBonus
	case "INSURANCE_CLEAR", "DELIVERED_SETTELMENT", "AUTO_EXCHANGE":
		return domain.DealTypeCorrection
	default:
		return domain.DealTypeUnknown
	}
}

func translateFill(f *futures.AccountTrade, positionID string) domain.Deal {
	entry := domain.DealEntryIn
	if !parseDecimal(f.RealizedPnl).IsZero() {
		entry = domain.DealEntryOut
	}
	side := domain.Buy
	if f.Side == futures.SideTypeSell {
		side = domain.Sell
	}
	return domain.Deal{
		ID:         strconv.FormatInt(f.ID, 10),
		Type:       domain.DealTypeTrade,
		Entry:      entry,
		Side:       side,
		PositionID: positionID,
		Symbol:     f.Symbol,
		Volume:     orZero(parseAmount(f.Quantity)),
		Price:      parseAmount(f.Price),
		Profit:     parseAmount(f.RealizedPnl),
		Commission: -orZero(parseAmount(f.Commission)),
		Time:       time.UnixMilli(f.Time).UTC(),
	}
}

// closingOrder accumulates the fills of one order that reduced a position.
type closingOrder struct {
	orderID   int64
	side      futures.SideType
	qty       decimal.Decimal
	notional  decimal.Decimal
	pnl       decimal.Decimal
	openTime  time.Time
	closeTime time.Time
}

// reconstructOrders folds a symbol's fills into one order per closing order.
// A fill carrying realized P&L reduced a position; its entry price follows
// from the P&L: long closed by a sell opened at close - pnl/qty, short closed
// by a buy at close + pnl/qty.
func reconstructOrders(symbol string, fills []*futures.AccountTrade) []domain.Order {
	sorted := make([]*futures.AccountTrade, 0, len(fills))
	for _, f := range fills {
		if f != nil {
			sorted = append(sorted, f)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	// Net position and its open time per position side (BOTH in one-way mode).
	// A position already open when the window starts has no known open time.
	net := make(map[futures.PositionSideType]decimal.Decimal)
	opened := make(map[futures.PositionSideType]time.Time)
	byOrder := make(map[int64]*closingOrder)
	var order []int64

	for _, f := range sorted {
		qty := parseDecimal(f.Quantity)
		price := parseDecimal(f.Price)
		pnl := parseDecimal(f.RealizedPnl)
		t := time.UnixMilli(f.Time).UTC()

		signed := qty
		if f.Side == futures.SideTypeSell {
			signed = qty.Neg()
		}
		openedAt := opened[f.PositionSide]
		before := net[f.PositionSide]
		after := before.Add(signed)
		net[f.PositionSide] = after

		// A reversal fill closes the old position up to zero and opens the
		// new one with the rest.
		closeQty := qty
		reversed := !before.IsZero() && !after.IsZero() && before.Sign() != after.Sign()
		if reversed {
			closeQty = before.Abs()
		}
		switch {
		case after.IsZero():
			delete(opened, f.PositionSide)
		case reversed:
			opened[f.PositionSide] = t
		case before.IsZero() && pnl.IsZero():
			opened[f.PositionSide] = t
		}

		if pnl.IsZero() || closeQty.IsZero() {
			continue
		}
		co, ok := byOrder[f.OrderID]
		if !ok {
			co = &closingOrder{orderID: f.OrderID, side: f.Side, openTime: openedAt}
			byOrder[f.OrderID] = co
			order = append(order, f.OrderID)
		}
		co.qty = co.qty.Add(closeQty)
		co.notional = co.notional.Add(closeQty.Mul(price))
		co.pnl = co.pnl.Add(pnl)
		co.closeTime = t
	}

	orders := make([]domain.Order, 0, len(order))
	for _, id := range order {
		orders = append(orders, byOrder[id].toDomain(symbol))
	}
	return orders
}

func (co *closingOrder) toDomain(symbol string) domain.Order {
	closePrice := co.notional.Div(co.qty)
	perUnit := co.pnl.Div(co.qty)

	direction := domain.Buy
	openPrice := closePrice.Sub(perUnit)
	if co.side == futures.SideTypeBuy {
		direction = domain.Sell
		openPrice = closePrice.Add(perUnit)
	}

	return domain.Order{
		ID:         strconv.FormatInt(co.orderID, 10),
		Type:       direction,
		Volume:     co.qty.InexactFloat64(),
		Symbol:     symbol,
		OpenPrice:  openPrice.InexactFloat64(),
		ClosePrice: closePrice.InexactFloat64(),
		Profit:     co.pnl.InexactFloat64(),
		OpenTime:   co.openTime,
		CloseTime:  co.closeTime,
		PositionID: formatPositionID(symbol, co.orderID, co.closeTime),
	}
}

// positionRef identifies a reconstructed position by its closing order.
type positionRef struct {
	symbol    string
	orderID   int64
	closeTime time.Time
}

func formatPositionID(symbol string, orderID int64, closeTime time.Time) string {
	return fmt.Sprintf("%s:%d:%d", symbol, orderID, closeTime.UnixMilli())
}

func parsePositionID(id string) (positionRef, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] == "" {
		return positionRef{}, fmt.Errorf("malformed binance position id %q", id)
	}
	orderID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return positionRef{}, fmt.Errorf("parsing order id of %q: %w", id, err)
	}
	ms, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return positionRef{}, fmt.Errorf("parsing close time of %q: %w", id, err)
	}
	return positionRef{symbol: parts[0], orderID: orderID, closeTime: time.UnixMilli(ms).UTC()}, nil
}

// parseAmount parses a Binance decimal string; malformed input yields NaN.
func parseAmount(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return math.NaN()
	}
	return d.InexactFloat64()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func orZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
