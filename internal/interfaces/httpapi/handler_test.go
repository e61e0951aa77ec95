package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traderDashboard/internal/analytics"
	"traderDashboard/internal/app"
	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
	"traderDashboard/internal/risk"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// fakeService serves one account, "acc-1", owned by "user-1". Loading
// "acc-slow" closes started and blocks until the load is canceled.
type fakeService struct {
	dashboardErr error
	linked       *domain.TradingAccount
	update       *domain.AccountSettingsUpdate
	unlinked     string
	started      chan struct{}
}

var testAccount = &domain.TradingAccount{ID: "acc-1", UserID: "user-1", Platform: domain.PlatformMT5, Login: "1001", Server: "Demo", Name: "Challenge", InitialBalance: 10000}

func (f *fakeService) Dashboard(ctx context.Context, accountID string) (*app.Dashboard, error) {
	if accountID == "acc-slow" && f.started != nil {
		close(f.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if accountID != "acc-1" {
		return nil, fmt.Errorf("account %s: %w", accountID, ports.ErrNotFound)
	}
	if f.dashboardErr != nil {
		return nil, f.dashboardErr
	}
	closeTime := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{Ticket: "p1", Direction: domain.Buy, Volume: 1, Symbol: "EURUSD", OpenPrice: 1.1, ClosePrice: 1.12, Profit: 200, OpenTime: closeTime.Add(-24 * time.Hour), CloseTime: closeTime},
		{Ticket: "p2", Direction: domain.Sell, Volume: 1, Symbol: "EURUSD", OpenPrice: 1.1, ClosePrice: math.NaN(), Profit: math.NaN(), CloseTime: closeTime},
	}
	curve := []analytics.EquityPoint{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Equity: 10000},
		{Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Equity: 10200},
	}
	return &app.Dashboard{
		Account:          testAccount,
		Snapshot:         &domain.AccountSnapshot{Balance: 10200, Equity: 10200, Leverage: math.NaN(), Currency: "USD"},
		Trades:           trades,
		Metrics:          analytics.ComputeMetrics(trades, nil),
		MetricsAvailable: true,
		Statistics:       analytics.AnalyzeTrades(trades),
		EquityCurve:      curve,
		EquityAvailable:  true,
		Drawdowns:        analytics.AnalyzeDrawdowns(curve),
		Evaluation:       &risk.Evaluation{Status: risk.StatusActive, TradingDays: 1},
		Warnings:         []string{},
		GeneratedAt:      closeTime,
	}, nil
}

func (f *fakeService) Account(ctx context.Context, accountID string) (*domain.TradingAccount, error) {
	if accountID != "acc-1" {
		return nil, ports.ErrNotFound
	}
	return testAccount, nil
}

func (f *fakeService) ListAccounts(ctx context.Context, userID string, includeArchived bool) ([]*domain.TradingAccount, error) {
	if userID != "user-1" {
		return []*domain.TradingAccount{}, nil
	}
	return []*domain.TradingAccount{testAccount}, nil
}

func (f *fakeService) LinkAccount(ctx context.Context, acc *domain.TradingAccount) (*domain.TradingAccount, error) {
	if err := acc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid account: %w: %w", ports.ErrInvalidRequest, err)
	}
	acc.ID = "acc-2"
	f.linked = acc
	return acc, nil
}

func (f *fakeService) UpdateSettings(ctx context.Context, accountID string, upd domain.AccountSettingsUpdate) (*domain.TradingAccount, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}
	if accountID != "acc-1" {
		return nil, ports.ErrNotFound
	}
	f.update = &upd
	acc := *testAccount
	upd.ApplyTo(&acc)
	return &acc, nil
}

func (f *fakeService) UnlinkAccount(ctx context.Context, accountID string) error {
	if accountID != "acc-1" {
		return ports.ErrNotFound
	}
	f.unlinked = accountID
	return nil
}

// Watch delivers one dashboard, then reports the account as unlinked.
func (f *fakeService) Watch(ctx context.Context, accountID string, interval time.Duration, fn func(*app.Dashboard, error)) func() {
	go func() {
		d, err := f.Dashboard(ctx, accountID)
		fn(d, err)
		if err == nil {
			fn(nil, fmt.Errorf("account %s: %w", accountID, ports.ErrNotFound))
		}
	}()
	return func() {}
}

func setupRouter(svc DashboardAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler(svc, nopLogger{}, time.Minute))
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestHealth(t *testing.T) {
	w, resp := do(t, setupRouter(&fakeService{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeOK, resp["code"])
}

func TestGetDashboard(t *testing.T) {
	router := setupRouter(&fakeService{})

	w, resp := do(t, router, http.MethodGet, "/api/v1/accounts/acc-1/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["metricsAvailable"])
	assert.Equal(t, "acc-1", data["account"].(map[string]interface{})["id"])

	snapshot := data["snapshot"].(map[string]interface{})
	assert.Equal(t, 10200.0, snapshot["equity"])
	assert.Nil(t, snapshot["leverage"], "NaN is rendered as null")

	trades := data["trades"].([]interface{})
	require.Len(t, trades, 2)
	assert.Equal(t, 200.0, trades[0].(map[string]interface{})["profit"])
	assert.Nil(t, trades[1].(map[string]interface{})["profit"])

	curve := data["equityCurve"].([]interface{})
	require.Len(t, curve, 2)
	assert.Equal(t, "2024-03-01", curve[0].(map[string]interface{})["date"])

	metrics := data["metrics"].(map[string]interface{})
	assert.Equal(t, 1.0, metrics["tradeCount"])
	assert.Equal(t, "active", data["evaluation"].(map[string]interface{})["status"])
}

func TestDashboardSections(t *testing.T) {
	router := setupRouter(&fakeService{})

	tests := []struct {
		path string
		key  string
	}{
		{"/api/v1/accounts/acc-1/metrics", "metrics"},
		{"/api/v1/accounts/acc-1/equity", "equityCurve"},
		{"/api/v1/accounts/acc-1/trades", "trades"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			w, resp := do(t, router, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, w.Code)
			data := resp["data"].(map[string]interface{})
			assert.Contains(t, data, tt.key)
			assert.Equal(t, true, data["available"])
		})
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		svc        *fakeService
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown account", &fakeService{}, http.MethodGet, "/api/v1/accounts/nope/dashboard", "", http.StatusNotFound, CodeNotFound},
		{"denied account", &fakeService{dashboardErr: ports.ErrPermissionDenied}, http.MethodGet, "/api/v1/accounts/acc-1/dashboard", "", http.StatusForbidden, CodeForbidden},
		{"canceled load", &fakeService{dashboardErr: ports.ErrContextCanceled}, http.MethodGet, "/api/v1/accounts/acc-1/metrics", "", http.StatusServiceUnavailable, CodeUnavailable},
		{"unexpected failure", &fakeService{dashboardErr: fmt.Errorf("disk full")}, http.MethodGet, "/api/v1/accounts/acc-1/equity", "", http.StatusInternalServerError, CodeInternal},
		{"missing user", &fakeService{}, http.MethodGet, "/api/v1/accounts", "", http.StatusBadRequest, CodeInvalidRequest},
		{"malformed body", &fakeService{}, http.MethodPost, "/api/v1/accounts", "{", http.StatusBadRequest, CodeInvalidRequest},
		{"missing required field", &fakeService{}, http.MethodPost, "/api/v1/accounts", `{"platform":"mt5"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"invalid account", &fakeService{}, http.MethodPost, "/api/v1/accounts", `{"userId":"user-1","platform":"mt5"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"empty settings", &fakeService{}, http.MethodPatch, "/api/v1/accounts/acc-1/settings", `{}`, http.StatusBadRequest, CodeInvalidRequest},
		{"settings of unknown account", &fakeService{}, http.MethodPatch, "/api/v1/accounts/nope/settings", `{"name":"x"}`, http.StatusNotFound, CodeNotFound},
		{"unlink unknown account", &fakeService{}, http.MethodDelete, "/api/v1/accounts/nope", "", http.StatusNotFound, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, setupRouter(tt.svc), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, resp["code"])
			assert.NotEmpty(t, resp["message"])
			assert.NotContains(t, resp, "data")
		})
	}
}

func TestAccountManagement(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(svc)

	w, resp := do(t, router, http.MethodGet, "/api/v1/accounts?user_id=user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["data"], 1)

	w, resp = do(t, router, http.MethodGet, "/api/v1/accounts/acc-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Challenge", resp["data"].(map[string]interface{})["name"])

	body := `{"userId":"user-1","platform":"binance","name":"Futures","initialBalance":5000}`
	w, resp = do(t, router, http.MethodPost, "/api/v1/accounts", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "acc-2", resp["data"].(map[string]interface{})["id"])
	require.NotNil(t, svc.linked)
	assert.Equal(t, domain.PlatformBinance, svc.linked.Platform)
	assert.Equal(t, 5000.0, svc.linked.InitialBalance)

	w, resp = do(t, router, http.MethodPatch, "/api/v1/accounts/acc-1/settings", `{"name":"Phase 2","archived":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Phase 2", data["name"])
	assert.Equal(t, true, data["archived"])
	require.NotNil(t, svc.update)
	assert.Nil(t, svc.update.InitialBalance, "absent fields stay untouched")

	w, _ = do(t, router, http.MethodDelete, "/api/v1/accounts/acc-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-1", svc.unlinked)
}

func TestStreamDashboard(t *testing.T) {
	server := httptest.NewServer(setupRouter(&fakeService{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/accounts/acc-1/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	stream := string(body)

	assert.Contains(t, stream, "event:dashboard")
	assert.Contains(t, stream, `"equityAvailable":true`)
	assert.Contains(t, stream, "event:error")
	assert.Contains(t, stream, CodeNotFound)
	assert.Less(t, strings.Index(stream, "event:dashboard"), strings.Index(stream, "event:error"))
}

func TestDashboard_ViewerSwitchesAccount(t *testing.T) {
	svc := &fakeService{started: make(chan struct{})}
	router := setupRouter(svc)

	type result struct {
		status int
		body   map[string]interface{}
	}
	slow := make(chan result, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acc-slow/dashboard?user_id=user-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var body map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		slow <- result{status: w.Code, body: body}
	}()

	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first load never started")
	}

	w, resp := do(t, router, http.MethodGet, "/api/v1/accounts/acc-1/metrics?user_id=user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeOK, resp["code"])

	select {
	case r := <-slow:
		assert.Equal(t, http.StatusConflict, r.status)
		assert.Equal(t, CodeStale, r.body["code"])
		assert.Contains(t, r.body["message"], "acc-1")
		assert.NotContains(t, r.body, "data")
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load did not return")
	}
}

func TestDashboard_SessionsPerViewer(t *testing.T) {
	h := NewHandler(&fakeService{}, nopLogger{}, time.Minute)
	assert.Same(t, h.session("user-1"), h.session("user-1"))
	assert.NotSame(t, h.session("user-1"), h.session("user-2"))
}
