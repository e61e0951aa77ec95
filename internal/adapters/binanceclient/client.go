package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// Binance rejects account-trade queries spanning more than seven days.
	queryWindow = 7 * 24 * time.Hour
	pageLimit   = 1000
)

// Client is a Binance USDⓈ-M futures account exposed as a ports.AccountDataSource.
// One client serves the single account its API key belongs to.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	symbols       []string
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Symbols    []string // Symbols whose fills are turned into closed trades, e.g. BTCUSDT
	BaseURL    string   // Overrides the production/testnet URL
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("binance API key and secret are required: %w", ports.ErrConfigurationError)
	}
	if len(cfg.Symbols) == 0 {
		cfg.Logger.Warn(context.Background(), "No Binance symbols configured. History orders will be empty.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL, "testnet": cfg.UseTestnet})

	symbols := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		symbols:       symbols,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mapAPIErrorCode(apiErr.Code), err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUpstreamUnavailable, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// mapAPIErrorCode maps Binance error codes to ports sentinels.
func mapAPIErrorCode(code int64) error {
	switch code {
	case -1000, -1001, -1006, -1007, -1016: // Unknown/disconnected/unexpected response/timeout/service shutting down
		return ports.ErrUpstreamUnavailable
	case -1003, -1015: // Too many requests / too many orders
		return ports.ErrRateLimited
	case -1021: // Timestamp for this request is outside of the recvWindow
		return ports.ErrTimeout
	case -1002, -1022, -2014, -2015: // Unauthorized / bad signature / bad API key / key lacks permission
		return ports.ErrAuthenticationFailed
	case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130: // Parameter/Request format errors
		return ports.ErrInvalidRequest
	default:
		return ports.ErrUnknown
	}
}

// GetAccountInformation retrieves wallet balance and margin balance (equity).
func (c *Client) GetAccountInformation(ctx context.Context) (*domain.AccountSnapshot, error) {
	op := "GetAccountInformation"
	account, err := c.futuresClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return translateAccount(account), nil
}

// GetHistoryOrders rebuilds closed positions in [from, to] from the account's
// fills on every configured symbol. Each returned order is one position close.
func (c *Client) GetHistoryOrders(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	op := "GetHistoryOrders"
	var orders []domain.Order
	for _, symbol := range c.symbols {
		fills, err := c.listFills(ctx, symbol, from, to)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		orders = append(orders, reconstructOrders(symbol, fills)...)
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CloseTime.Before(orders[j].CloseTime) })
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbols": len(c.symbols), "count": len(orders)})
	return orders, nil
}

// GetDealsByPosition returns the closing fills of a position built by
// GetHistoryOrders as OUT deals.
func (c *Client) GetDealsByPosition(ctx context.Context, positionID string) ([]domain.Deal, error) {
	op := "GetDealsByPosition"
	ref, err := parsePositionID(positionID)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %w", op, ports.ErrInvalidRequest, err)
	}

	// The closing order's fills all land within a minute of its last fill.
	fills, err := c.listFills(ctx, ref.symbol, ref.closeTime.Add(-time.Minute), ref.closeTime.Add(time.Second))
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	deals := make([]domain.Deal, 0)
	for _, f := range fills {
		if f.OrderID == ref.orderID {
			deals = append(deals, translateFill(f, positionID))
		}
	}
	return deals, nil
}

// GetDealsByTimeRange retrieves the futures income history in [from, to].
func (c *Client) GetDealsByTimeRange(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	op := "GetDealsByTimeRange"
	var deals []domain.Deal
	for _, w := range splitWindows(from, to, queryWindow) {
		start := w.from.UnixMilli()
		for {
			incomes, err := c.futuresClient.NewGetIncomeHistoryService().
				StartTime(start).
				EndTime(w.to.UnixMilli()).
				Limit(pageLimit).
				Do(ctx)
			if err != nil {
				return nil, c.handleError(ctx, err, op)
			}
			for _, in := range incomes {
				deals = append(deals, translateIncome(in))
			}
			if len(incomes) < pageLimit {
				break
			}
			start = incomes[len(incomes)-1].Time + 1
		}
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"count": len(deals)})
	return deals, nil
}

// listFills pages through the account trades of symbol in [from, to].
func (c *Client) listFills(ctx context.Context, symbol string, from, to time.Time) ([]*futures.AccountTrade, error) {
	var fills []*futures.AccountTrade
	for _, w := range splitWindows(from, to, queryWindow) {
		start := w.from.UnixMilli()
		for {
			page, err := c.futuresClient.NewListAccountTradeService().
				Symbol(symbol).
				StartTime(start).
				EndTime(w.to.UnixMilli()).
				Limit(pageLimit).
				Do(ctx)
			if err != nil {
				return nil, err
			}
			fills = append(fills, page...)
			if len(page) < pageLimit {
				break
			}
			start = page[len(page)-1].Time + 1
		}
	}
	return fills, nil
}

type window struct {
	from, to time.Time
}

// splitWindows cuts [from, to] into consecutive windows no longer than span.
func splitWindows(from, to time.Time, span time.Duration) []window {
	if !from.Before(to) {
		return nil
	}
	var out []window
	for start := from; start.Before(to); start = start.Add(span) {
		end := start.Add(span)
		if end.After(to) {
			end = to
		}
		out = append(out, window{from: start, to: end})
	}
	return out
}
