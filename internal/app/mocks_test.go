package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"traderDashboard/config"
	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

// memRepository is an in-memory ports.AccountRepository.
type memRepository struct {
	mu       sync.Mutex
	accounts map[string]*domain.TradingAccount
	nextID   int
}

func newMemRepository(accounts ...*domain.TradingAccount) *memRepository {
	r := &memRepository{accounts: make(map[string]*domain.TradingAccount)}
	for _, a := range accounts {
		cp := *a
		r.accounts[a.ID] = &cp
	}
	return r
}

func (r *memRepository) Create(ctx context.Context, acc *domain.TradingAccount) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.UserID == acc.UserID && a.Platform == acc.Platform && a.Login == acc.Login && a.Server == acc.Server {
			return "", ports.ErrDuplicateEntry
		}
	}
	r.nextID++
	if acc.ID == "" {
		acc.ID = fmt.Sprintf("acc-%d", r.nextID)
	}
	cp := *acc
	r.accounts[acc.ID] = &cp
	return acc.ID, nil
}

func (r *memRepository) FindByID(ctx context.Context, id string) (*domain.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memRepository) FindByUser(ctx context.Context, userID string, includeArchived bool) ([]*domain.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.TradingAccount, 0)
	for _, a := range r.accounts {
		if a.UserID == userID && (includeArchived || !a.Archived) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepository) FindAll(ctx context.Context) ([]*domain.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.TradingAccount, 0, len(r.accounts))
	for _, a := range r.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepository) UpdateSettings(ctx context.Context, id string, upd domain.AccountSettingsUpdate) (*domain.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	upd.ApplyTo(a)
	cp := *a
	return &cp, nil
}

func (r *memRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

// mockSource is a scripted ports.AccountDataSource.
type mockSource struct {
	mu sync.Mutex

	snapshot    *domain.AccountSnapshot
	snapshotErr error
	orders      []domain.Order
	ordersErr   error
	byPosition  map[string][]domain.Deal
	positionErr error
	deals       []domain.Deal
	dealsErr    error

	positionCalls []string
}

func (m *mockSource) GetAccountInformation(ctx context.Context) (*domain.AccountSnapshot, error) {
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	cp := *m.snapshot
	return &cp, nil
}

func (m *mockSource) GetHistoryOrders(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	return m.orders, m.ordersErr
}

func (m *mockSource) GetDealsByPosition(ctx context.Context, positionID string) ([]domain.Deal, error) {
	m.mu.Lock()
	m.positionCalls = append(m.positionCalls, positionID)
	m.mu.Unlock()
	if m.positionErr != nil {
		return nil, m.positionErr
	}
	return m.byPosition[positionID], nil
}

func (m *mockSource) GetDealsByTimeRange(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	return m.deals, m.dealsErr
}

// mockFactory serves one source for every account.
type mockFactory struct {
	src       ports.AccountDataSource
	err       error
	denied    error // Returned by Authorize
	forgotten []string
}

func (f *mockFactory) Authorize(acc *domain.TradingAccount) error {
	return f.denied
}

func (f *mockFactory) ForAccount(acc *domain.TradingAccount) (ports.AccountDataSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.src, nil
}

func (f *mockFactory) Forget(accountID string) {
	f.forgotten = append(f.forgotten, accountID)
}

// --- Fixtures ---

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func day(d, h int) time.Time {
	return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC)
}

func testConfig() *config.Config {
	return &config.Config{
		HistoryDays:        30,
		FetchTimeout:       time.Second,
		EquityLocation:     time.UTC,
		RuleMaxDailyLoss:   0.05,
		RuleMaxDrawdown:    0.10,
		RuleProfitTarget:   0.08,
		RuleMinTradingDays: 1,
	}
}

func testAccount() *domain.TradingAccount {
	return &domain.TradingAccount{
		ID:                "acc-1",
		UserID:            "user-1",
		Platform:          domain.PlatformMT5,
		Login:             "1001",
		Server:            "Broker-Demo",
		ProviderAccountID: "meta-1",
		Name:              "Challenge",
		InitialBalance:    10000,
	}
}

// testSource scripts two closed positions (+200 and -50), one open position,
// a deposit and the matching time-range deals.
func testSource() *mockSource {
	return &mockSource{
		snapshot: &domain.AccountSnapshot{Balance: 10150, Equity: 10150},
		orders: []domain.Order{
			{ID: "o1", Type: domain.Buy, Volume: 1, Symbol: "EURUSD", OpenPrice: 1.10, ClosePrice: nan(), Profit: nan(), OpenTime: day(1, 10), PositionID: "p1"},
			{ID: "o2", Type: domain.Sell, Volume: 1, Symbol: "EURUSD", OpenPrice: 1.12, ClosePrice: nan(), Profit: nan(), OpenTime: day(2, 10), PositionID: "p1"},
			{ID: "o3", Type: domain.Sell, Volume: 0.5, Symbol: "GBPUSD", OpenPrice: 1.30, ClosePrice: nan(), Profit: nan(), OpenTime: day(5, 9), PositionID: "p2"},
			{ID: "o4", Type: domain.Buy, Volume: 0.2, Symbol: "XAUUSD", OpenPrice: 2100, ClosePrice: nan(), Profit: nan(), OpenTime: day(14, 9), PositionID: "p3"},
		},
		byPosition: map[string][]domain.Deal{
			"p1": {
				{ID: "d1", Entry: domain.DealEntryIn, Side: domain.Buy, PositionID: "p1", Symbol: "EURUSD", Volume: 1, Price: 1.10, Profit: 0, Time: day(1, 10)},
				{ID: "d2", Entry: domain.DealEntryOut, PositionID: "p1", Symbol: "EURUSD", Volume: 1, Price: 1.12, Profit: 200, Time: day(2, 10)},
			},
			"p2": {
				{ID: "d3", Entry: domain.DealEntryIn, Side: domain.Sell, PositionID: "p2", Symbol: "GBPUSD", Volume: 0.5, Price: 1.30, Profit: 0, Time: day(5, 9)},
				{ID: "d4", Entry: domain.DealEntryOut, PositionID: "p2", Symbol: "GBPUSD", Volume: 0.5, Price: 1.31, Profit: -50, Time: day(6, 9)},
			},
			"p3": {
				{ID: "d5", Entry: domain.DealEntryIn, PositionID: "p3", Symbol: "XAUUSD", Volume: 0.2, Price: 2100, Profit: 0, Time: day(14, 9)},
			},
		},
		deals: []domain.Deal{
			{ID: "d0", Type: domain.DealTypeBalance, Profit: 10000, Time: day(1, 0)},
			{ID: "d1", Entry: domain.DealEntryIn, Profit: 0, Time: day(1, 10)},
			{ID: "d2", Entry: domain.DealEntryOut, Profit: 200, Time: day(2, 10)},
			{ID: "d3", Entry: domain.DealEntryIn, Profit: 0, Time: day(5, 9)},
			{ID: "d4", Entry: domain.DealEntryOut, Profit: -50, Time: day(6, 9)},
			{ID: "d5", Entry: domain.DealEntryIn, Profit: 0, Time: day(14, 9)},
		},
	}
}

func newTestService(repo ports.AccountRepository, factory ports.AccountSourceFactory) (*DashboardService, *mockLogger) {
	log := &mockLogger{}
	svc, err := NewDashboardService(testConfig(), log, repo, factory)
	if err != nil {
		panic(err)
	}
	svc.now = func() time.Time { return fixedNow }
	return svc, log
}
