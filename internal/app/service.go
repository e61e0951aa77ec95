package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"traderDashboard/config"
	"traderDashboard/internal/analytics"
	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
	"traderDashboard/internal/risk"
)

const (
	// Upper bound on concurrent per-position deal requests of one load.
	maxPositionFetches = 4
)

// Dashboard is everything shown for one account. Each section degrades on
// its own: a failed upstream call empties its sections and adds a warning.
type Dashboard struct {
	Account          *domain.TradingAccount
	Snapshot         *domain.AccountSnapshot // nil when account information is unavailable
	Trades           []domain.Trade
	Metrics          analytics.PerformanceMetrics
	MetricsAvailable bool
	Statistics       analytics.TradeStatistics
	EquityCurve      []analytics.EquityPoint
	EquityAvailable  bool
	Drawdowns        analytics.DrawdownSummary
	Evaluation       *risk.Evaluation // nil without an initial balance or equity curve
	Warnings         []string
	GeneratedAt      time.Time
}

// DashboardService builds account dashboards from the account-data providers
// and manages linked accounts.
type DashboardService struct {
	logger    ports.Logger
	repo      ports.AccountRepository
	sources   ports.AccountSourceFactory
	hub       *Hub
	evaluator *risk.Evaluator

	historyDays  int
	fetchTimeout time.Duration
	location     *time.Location
	now          func() time.Time
}

// NewDashboardService creates a new application service instance.
func NewDashboardService(
	cfg *config.Config,
	logger ports.Logger,
	repo ports.AccountRepository,
	sources ports.AccountSourceFactory,
) (*DashboardService, error) {
	if cfg == nil || logger == nil || repo == nil || sources == nil {
		return nil, fmt.Errorf("missing required dependencies for DashboardService")
	}
	if cfg.HistoryDays <= 0 {
		return nil, fmt.Errorf("configuration HistoryDays must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("configuration FetchTimeout must be positive")
	}

	loc := cfg.EquityLocation
	if loc == nil {
		loc = time.UTC
	}

	evaluator, err := risk.NewEvaluator(risk.RuleSet{
		MaxDailyLoss:   cfg.RuleMaxDailyLoss,
		MaxDrawdown:    cfg.RuleMaxDrawdown,
		ProfitTarget:   cfg.RuleProfitTarget,
		MinTradingDays: cfg.RuleMinTradingDays,
		Location:       loc,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid funded-account rules: %w", err)
	}

	return &DashboardService{
		logger:       logger,
		repo:         repo,
		sources:      sources,
		hub:          NewHub(logger),
		evaluator:    evaluator,
		historyDays:  cfg.HistoryDays,
		fetchTimeout: cfg.FetchTimeout,
		location:     loc,
		now:          time.Now,
	}, nil
}

// Hub returns the hub account changes are published on.
func (s *DashboardService) Hub() *Hub {
	return s.hub
}

// Dashboard fetches an account's data and derives its dashboard. It fails
// only when the account cannot be resolved or ctx is done; upstream
// failures degrade the affected sections.
func (s *DashboardService) Dashboard(ctx context.Context, accountID string) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Dashboard", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	acc, err := s.account(ctx, accountID)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	src, err := s.sources.ForAccount(acc)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	now := s.now().In(s.location)
	from := now.AddDate(0, 0, -s.historyDays)

	var (
		snapshot                     *domain.AccountSnapshot
		trades                       []domain.Trade
		deals                        []domain.Deal
		snapErr, tradesErr, dealsErr error
	)
	// Each fetch records its own error so one failure does not cancel the others.
	var g errgroup.Group
	g.Go(func() error {
		snapshot, snapErr = src.GetAccountInformation(fetchCtx)
		return nil
	})
	g.Go(func() error {
		trades, tradesErr = s.fetchTrades(fetchCtx, src, from, now)
		return nil
	})
	g.Go(func() error {
		deals, dealsErr = src.GetDealsByTimeRange(fetchCtx, from, now)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dashboard of account %s: %w: %w", accountID, ports.ErrContextCanceled, err)
	}

	d := s.buildDashboard(acc, now, snapshot, snapErr, trades, tradesErr, deals, dealsErr)
	for _, w := range d.Warnings {
		s.logger.Warn(ctx, "Dashboard section degraded", map[string]interface{}{"accountID": accountID, "warning": w})
	}
	span.SetAttributes(
		attribute.Int("trades.count", len(d.Trades)),
		attribute.Bool("metrics.available", d.MetricsAvailable),
		attribute.Bool("equity.available", d.EquityAvailable),
	)
	return d, nil
}

// buildDashboard derives every section from whatever the fetches returned.
func (s *DashboardService) buildDashboard(
	acc *domain.TradingAccount,
	now time.Time,
	snapshot *domain.AccountSnapshot, snapErr error,
	trades []domain.Trade, tradesErr error,
	deals []domain.Deal, dealsErr error,
) *Dashboard {
	d := &Dashboard{
		Account:     acc,
		Trades:      make([]domain.Trade, 0),
		EquityCurve: make([]analytics.EquityPoint, 0),
		Warnings:    make([]string, 0),
		GeneratedAt: now,
	}

	if snapErr != nil || snapshot == nil {
		d.Warnings = append(d.Warnings, "account information unavailable"+reason(snapErr))
	} else {
		d.Snapshot = snapshot
	}

	if tradesErr != nil {
		d.Warnings = append(d.Warnings, "trade history unavailable"+reason(tradesErr))
	} else {
		d.Trades = trades
		d.MetricsAvailable = true
	}
	d.Metrics = analytics.ComputeMetrics(d.Trades, d.Snapshot)
	d.Statistics = analytics.AnalyzeTrades(d.Trades)

	switch {
	case dealsErr != nil:
		d.Warnings = append(d.Warnings, "deal history unavailable"+reason(dealsErr))
	case d.Snapshot == nil:
		// Without current equity there is nothing to unwind from.
	default:
		d.EquityCurve = analytics.ReconstructEquityCurveAt(deals, d.Snapshot.Equity, now)
		d.EquityAvailable = true
	}
	d.Drawdowns = analytics.AnalyzeDrawdowns(d.EquityCurve)

	if d.EquityAvailable && acc.InitialBalance > 0 {
		eval := s.evaluator.Evaluate(acc.InitialBalance, d.EquityCurve, d.Trades, d.Snapshot)
		d.Evaluation = &eval
	}
	return d
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return ": " + err.Error()
}

// fetchTrades loads history orders and the deals of positions whose orders
// lack close data, at most maxPositionFetches at a time.
func (s *DashboardService) fetchTrades(ctx context.Context, src ports.AccountDataSource, from, to time.Time) ([]domain.Trade, error) {
	orders, err := src.GetHistoryOrders(ctx, from, to)
	if err != nil {
		return nil, err
	}

	positions := positionsNeedingDeals(orders)
	dealsByPosition := make(map[string][]domain.Deal, len(positions))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPositionFetches)
	for _, id := range positions {
		id := id // per-iteration copy; go.mod targets go 1.21 (pre-1.22 loop semantics)
		g.Go(func() error {
			deals, err := src.GetDealsByPosition(gctx, id)
			if err != nil {
				return fmt.Errorf("deals of position %s: %w", id, err)
			}
			mu.Lock()
			dealsByPosition[id] = deals
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return BuildTrades(orders, dealsByPosition), nil
}

func (s *DashboardService) account(ctx context.Context, accountID string) (*domain.TradingAccount, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("account ID is required: %w", ports.ErrInvalidRequest)
	}
	acc, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	if acc == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, ports.ErrNotFound)
	}
	return acc, nil
}

// --- Account management ---

// Account returns a linked account.
func (s *DashboardService) Account(ctx context.Context, accountID string) (*domain.TradingAccount, error) {
	return s.account(ctx, accountID)
}

// ListAccounts returns a user's linked accounts.
func (s *DashboardService) ListAccounts(ctx context.Context, userID string, includeArchived bool) ([]*domain.TradingAccount, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID is required: %w", ports.ErrInvalidRequest)
	}
	return s.repo.FindByUser(ctx, userID, includeArchived)
}

// AllAccounts lists the accounts of every user. Archived accounts are left
// out unless includeArchived is set.
func (s *DashboardService) AllAccounts(ctx context.Context, includeArchived bool) ([]*domain.TradingAccount, error) {
	accounts, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if includeArchived {
		return accounts, nil
	}
	active := make([]*domain.TradingAccount, 0, len(accounts))
	for _, acc := range accounts {
		if !acc.Archived {
			active = append(active, acc)
		}
	}
	return active, nil
}

// LinkAccount validates and stores a new account link.
func (s *DashboardService) LinkAccount(ctx context.Context, acc *domain.TradingAccount) (*domain.TradingAccount, error) {
	if acc == nil {
		return nil, fmt.Errorf("account is required: %w", ports.ErrInvalidRequest)
	}
	if err := acc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid account: %w: %w", ports.ErrInvalidRequest, err)
	}
	if err := s.sources.Authorize(acc); err != nil {
		return nil, err
	}
	if _, err := s.repo.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Trading account linked", map[string]interface{}{"accountID": acc.ID, "userID": acc.UserID, "platform": acc.Platform})
	return acc, nil
}

// UpdateSettings validates and persists a settings update, then notifies the
// account's subscribers.
func (s *DashboardService) UpdateSettings(ctx context.Context, accountID string, upd domain.AccountSettingsUpdate) (*domain.TradingAccount, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings update: %w: %w", ports.ErrInvalidRequest, err)
	}
	acc, err := s.repo.UpdateSettings(ctx, accountID, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Trading account settings updated", map[string]interface{}{"accountID": accountID})
	s.hub.Publish(AccountEvent{Type: AccountUpdated, AccountID: accountID, Account: acc, At: s.now()})
	return acc, nil
}

// UnlinkAccount deletes an account link and notifies its subscribers.
func (s *DashboardService) UnlinkAccount(ctx context.Context, accountID string) error {
	if err := s.repo.Delete(ctx, accountID); err != nil {
		return err
	}
	if f, ok := s.sources.(interface{ Forget(string) }); ok {
		f.Forget(accountID)
	}
	s.logger.Info(ctx, "Trading account unlinked", map[string]interface{}{"accountID": accountID})
	s.hub.Publish(AccountEvent{Type: AccountDeleted, AccountID: accountID, At: s.now()})
	return nil
}

// SeedAccounts links accounts that are not linked yet. Already linked
// accounts are skipped.
func (s *DashboardService) SeedAccounts(ctx context.Context, accounts []*domain.TradingAccount) (int, error) {
	created := 0
	for _, acc := range accounts {
		_, err := s.LinkAccount(ctx, acc)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ports.ErrDuplicateEntry):
			s.logger.Debug(ctx, "Seed account already linked", map[string]interface{}{"userID": acc.UserID, "login": acc.Login})
		default:
			return created, err
		}
	}
	return created, nil
}
