package binanceclient

import (
	"context"
	"math"
	"testing"
	"time"

	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	errors int
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errors++
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func TestNew(t *testing.T) {
	_, err := New(Config{APIKey: "k", SecretKey: "s"})
	assert.Error(t, err)

	_, err = New(Config{Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	c, err := New(Config{APIKey: "k", SecretKey: "s", UseTestnet: true, Symbols: []string{" btcusdt ", ""}, Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, baseURLTestnet, c.futuresClient.BaseURL)
	assert.Equal(t, []string{"BTCUSDT"}, c.symbols)
}

func TestTranslateAccount(t *testing.T) {
	snap := translateAccount(&futures.Account{
		TotalWalletBalance: "1000.50",
		TotalMarginBalance: "1012.25",
		TotalInitialMargin: "50",
		AvailableBalance:   "bad",
	})
	require.NotNil(t, snap)
	assert.Equal(t, 1000.5, snap.Balance)
	assert.Equal(t, 1012.25, snap.Equity)
	assert.Equal(t, 50.0, snap.Margin)
	assert.Equal(t, 0.0, snap.FreeMargin)
	assert.Equal(t, domain.PlatformBinance, snap.Platform)

	assert.Nil(t, translateAccount(nil))
}

func TestTranslateIncome(t *testing.T) {
	at := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		incomeType string
		wantType   domain.DealType
		wantEntry  domain.DealEntry
	}{
		{"REALIZED_PNL", domain.DealTypeTrade, domain.DealEntryOut},
		{"TRANSFER", domain.DealTypeBalance, domain.DealEntryUnknown},
		{"COMMISSION", domain.DealTypeCommission, domain.DealEntryUnknown},
		{"FUNDING_FEE", domain.DealTypeInterest, domain.DealEntryUnknown},
		{"SOMETHING_NEW", domain.DealTypeUnknown, domain.DealEntryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.incomeType, func(t *testing.T) {
			d := translateIncome(&futures.IncomeHistory{
				Income: "-12.5", IncomeType: tt.incomeType, Symbol: "BTCUSDT", Time: ms(at), TranID: 42,
			})
			assert.Equal(t, tt.wantType, d.Type)
			assert.Equal(t, tt.wantEntry, d.Entry)
			assert.Equal(t, "42", d.ID)
			assert.Equal(t, -12.5, d.Profit)
			assert.Equal(t, at, d.Time)
		})
	}

	bad := translateIncome(&futures.IncomeHistory{Income: "n/a", IncomeType: "REALIZED_PNL"})
	assert.True(t, math.IsNaN(bad.Profit))
}

func TestReconstructOrders_LongAndShort(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fills := []*futures.AccountTrade{
		// Long 2 @ 100, closed by two fills of one sell order @ 110 and 112
		{ID: 1, OrderID: 10, Side: futures.SideTypeBuy, PositionSide: futures.PositionSideTypeBoth, Price: "100", Quantity: "2", RealizedPnl: "0", Time: ms(t0)},
		{ID: 3, OrderID: 11, Side: futures.SideTypeSell, PositionSide: futures.PositionSideTypeBoth, Price: "112", Quantity: "1", RealizedPnl: "12", Time: ms(t0.Add(3*time.Hour + time.Second))},
		{ID: 2, OrderID: 11, Side: futures.SideTypeSell, PositionSide: futures.PositionSideTypeBoth, Price: "110", Quantity: "1", RealizedPnl: "10", Time: ms(t0.Add(3 * time.Hour))},
		// Short 1 @ 120 closed @ 125 for a loss
		{ID: 4, OrderID: 12, Side: futures.SideTypeSell, PositionSide: futures.PositionSideTypeBoth, Price: "120", Quantity: "1", RealizedPnl: "0", Time: ms(t0.Add(5 * time.Hour))},
		{ID: 5, OrderID: 13, Side: futures.SideTypeBuy, PositionSide: futures.PositionSideTypeBoth, Price: "125", Quantity: "1", RealizedPnl: "-5", Time: ms(t0.Add(6 * time.Hour))},
		nil,
	}

	orders := reconstructOrders("BTCUSDT", fills)
	require.Len(t, orders, 2)

	long := orders[0]
	assert.Equal(t, "11", long.ID)
	assert.Equal(t, domain.Buy, long.Type)
	assert.InDelta(t, 2.0, long.Volume, 1e-9)
	assert.InDelta(t, 111.0, long.ClosePrice, 1e-9)
	assert.InDelta(t, 100.0, long.OpenPrice, 1e-9)
	assert.InDelta(t, 22.0, long.Profit, 1e-9)
	assert.Equal(t, t0, long.OpenTime)
	assert.Equal(t, t0.Add(3*time.Hour+time.Second), long.CloseTime)
	assert.Equal(t, formatPositionID("BTCUSDT", 11, long.CloseTime), long.PositionID)

	short := orders[1]
	assert.Equal(t, domain.Sell, short.Type)
	assert.InDelta(t, 120.0, short.OpenPrice, 1e-9)
	assert.InDelta(t, 125.0, short.ClosePrice, 1e-9)
	assert.InDelta(t, -5.0, short.Profit, 1e-9)
	assert.Equal(t, t0.Add(5*time.Hour), short.OpenTime)
}

func TestReconstructOrders_OpenBeforeWindow(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fills := []*futures.AccountTrade{
		{ID: 1, OrderID: 1, Side: futures.SideTypeSell, Price: "50", Quantity: "1", RealizedPnl: "5", Time: ms(t0)},
	}
	orders := reconstructOrders("ETHUSDT", fills)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].OpenTime.IsZero())
	assert.InDelta(t, 45.0, orders[0].OpenPrice, 1e-9)
}

func TestReconstructOrders_Reversal(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fills := []*futures.AccountTrade{
		// Long 1 @ 100, reversed by a sell of 3 @ 110 into a short of 2
		{ID: 1, OrderID: 1, Side: futures.SideTypeBuy, PositionSide: futures.PositionSideTypeBoth, Price: "100", Quantity: "1", RealizedPnl: "0", Time: ms(t0)},
		{ID: 2, OrderID: 2, Side: futures.SideTypeSell, PositionSide: futures.PositionSideTypeBoth, Price: "110", Quantity: "3", RealizedPnl: "10", Time: ms(t0.Add(time.Hour))},
		// Short 2 closed @ 105
		{ID: 3, OrderID: 3, Side: futures.SideTypeBuy, PositionSide: futures.PositionSideTypeBoth, Price: "105", Quantity: "2", RealizedPnl: "10", Time: ms(t0.Add(4 * time.Hour))},
	}

	orders := reconstructOrders("BTCUSDT", fills)
	require.Len(t, orders, 2)

	long := orders[0]
	assert.Equal(t, domain.Buy, long.Type)
	assert.InDelta(t, 1.0, long.Volume, 1e-9, "only the closing part of the reversal counts")
	assert.InDelta(t, 100.0, long.OpenPrice, 1e-9)
	assert.InDelta(t, 110.0, long.ClosePrice, 1e-9)
	assert.Equal(t, t0, long.OpenTime)

	short := orders[1]
	assert.Equal(t, domain.Sell, short.Type)
	assert.InDelta(t, 2.0, short.Volume, 1e-9)
	assert.InDelta(t, 110.0, short.OpenPrice, 1e-9)
	assert.InDelta(t, 105.0, short.ClosePrice, 1e-9)
	assert.Equal(t, t0.Add(time.Hour), short.OpenTime, "the reversal opened the short")
}

func TestPositionIDRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 123000000, time.UTC)
	ref, err := parsePositionID(formatPositionID("BTCUSDT", 77, at))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", ref.symbol)
	assert.Equal(t, int64(77), ref.orderID)
	assert.Equal(t, at, ref.closeTime)

	for _, bad := range []string{"", "BTCUSDT", "BTCUSDT:x:1", "BTCUSDT:1:y", ":1:2"} {
		_, err := parsePositionID(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetDealsByPosition_MalformedID(t *testing.T) {
	c, err := New(Config{APIKey: "k", SecretKey: "s", Logger: &mockLogger{}})
	require.NoError(t, err)

	_, err = c.GetDealsByPosition(context.Background(), "not-a-position")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestTranslateFill(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d := translateFill(&futures.AccountTrade{ID: 9, Symbol: "BTCUSDT", Side: futures.SideTypeSell, Price: "110", Quantity: "0.5", RealizedPnl: "5", Commission: "0.02", Time: ms(at)}, "pos")
	assert.Equal(t, domain.DealEntryOut, d.Entry)
	assert.Equal(t, domain.DealTypeTrade, d.Type)
	assert.Equal(t, domain.Sell, d.Side)
	assert.Equal(t, 110.0, d.Price)
	assert.Equal(t, 5.0, d.Profit)
	assert.Equal(t, -0.02, d.Commission)
	assert.Equal(t, "pos", d.PositionID)

	open := translateFill(&futures.AccountTrade{Side: futures.SideTypeBuy, Price: "100", Quantity: "1", RealizedPnl: "0"}, "pos")
	assert.Equal(t, domain.DealEntryIn, open.Entry)
	assert.Equal(t, domain.Buy, open.Side)
}

func TestSplitWindows(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ws := splitWindows(from, from.Add(15*24*time.Hour), queryWindow)
	require.Len(t, ws, 3)
	assert.Equal(t, from, ws[0].from)
	assert.Equal(t, from.Add(7*24*time.Hour), ws[1].from)
	assert.Equal(t, from.Add(15*24*time.Hour), ws[2].to)

	assert.Empty(t, splitWindows(from, from, queryWindow))
}

func TestHandleError(t *testing.T) {
	log := &mockLogger{}
	c := &Client{logger: log}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", &common.APIError{Code: -1003, Message: "too many"}, ports.ErrRateLimited},
		{"bad key", &common.APIError{Code: -2015, Message: "invalid key"}, ports.ErrAuthenticationFailed},
		{"bad param", &common.APIError{Code: -1102, Message: "missing"}, ports.ErrInvalidRequest},
		{"unmapped", &common.APIError{Code: -9999}, ports.ErrUnknown},
		{"deadline", context.DeadlineExceeded, ports.ErrTimeout},
		{"canceled", context.Canceled, ports.ErrContextCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.handleError(context.Background(), tt.err, "op")
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, len(tests), log.errors)
	assert.NoError(t, c.handleError(context.Background(), nil, "op"))
}
