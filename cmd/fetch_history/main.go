package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"traderDashboard/config"
	"traderDashboard/internal/adapters/binanceclient"
	"traderDashboard/internal/adapters/logger"
	"traderDashboard/internal/adapters/metaapi"
	"traderDashboard/internal/adapters/sqlite"
	"traderDashboard/internal/app"
	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
	"traderDashboard/internal/utils"
)

func main() {
	accountID := flag.String("account", "", "ID of a linked trading account (default: every active account)")
	outDir := flag.String("out", "data", "Directory the CSV files are written to")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Initialize Repository and Account Data Sources
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	registryCfg := app.SourceRegistryConfig{Logger: appLogger}
	if cfg.MetaAPIEnabled() {
		metaClient, err := metaapi.New(metaapi.Config{
			Token:      cfg.MetaAPIToken,
			Region:     cfg.MetaAPIRegion,
			BaseURL:    cfg.MetaAPIBaseURL,
			Timeout:    cfg.FetchTimeout,
			MaxRetries: cfg.MaxRetries,
			Logger:     appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize MetaApi client: %v", err)
		}
		registryCfg.MetaTrader = func(id string) ports.AccountDataSource { return metaClient.Account(id) }
	}
	if cfg.BinanceEnabled() {
		binanceClient, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceSecretKey,
			UseTestnet: cfg.IsTestnet,
			Symbols:    cfg.BinanceSymbols,
			Logger:     appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		registryCfg.Binance = binanceClient
		registryCfg.BinanceOwner = cfg.BinanceOwnerUserID
	}
	sources, err := app.NewSourceRegistry(registryCfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize account data sources: %v", err)
	}
	svc, err := app.NewDashboardService(cfg, appLogger, repo, sources)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize dashboard service: %v", err)
	}

	// 4. Resolve the accounts to export
	var accounts []*domain.TradingAccount
	if *accountID != "" {
		acc, err := svc.Account(ctx, *accountID)
		if err != nil {
			log.Fatalf("Error loading account: %v", err)
		}
		accounts = append(accounts, acc)
	} else {
		accounts, err = svc.AllAccounts(ctx, false)
		if err != nil {
			log.Fatalf("Error listing accounts: %v", err)
		}
	}
	if len(accounts) == 0 {
		log.Fatal("FATAL: no linked accounts to export")
	}

	// 5. Write CSVs
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Error creating output directory: %v", err)
	}
	failed := 0
	for _, acc := range accounts {
		if err := exportAccount(ctx, cfg, appLogger, svc, sources, acc, *outDir); err != nil {
			appLogger.Error(ctx, err, "Export failed", map[string]interface{}{"accountID": acc.ID})
			failed++
		}
	}
	if failed > 0 {
		log.Fatalf("Export failed for %d of %d accounts", failed, len(accounts))
	}
}

// exportAccount writes an account's closed trades and ledger deals to CSV.
func exportAccount(ctx context.Context, cfg *config.Config, appLogger ports.Logger, svc *app.DashboardService, sources ports.AccountSourceFactory, acc *domain.TradingAccount, outDir string) error {
	dashboard, err := svc.Dashboard(ctx, acc.ID)
	if err != nil {
		return fmt.Errorf("fetching trades: %w", err)
	}
	for _, w := range dashboard.Warnings {
		appLogger.Warn(ctx, "Partial history", map[string]interface{}{"accountID": acc.ID, "warning": w})
	}

	src, err := sources.ForAccount(acc)
	if err != nil {
		return fmt.Errorf("resolving account data source: %w", err)
	}
	end := time.Now()
	start := end.AddDate(0, 0, -cfg.HistoryDays)
	dealsCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()
	deals, err := src.GetDealsByTimeRange(dealsCtx, start, end)
	if err != nil {
		return fmt.Errorf("fetching deals: %w", err)
	}

	suffix := fmt.Sprintf("%s_%s_to_%s.csv", acc.ID, start.Format("20060102"), end.Format("20060102"))
	tradesFile := filepath.Join(outDir, "trades_"+suffix)
	if err := utils.WriteTradesToCSV(dashboard.Trades, tradesFile); err != nil {
		return fmt.Errorf("writing trades CSV: %w", err)
	}
	dealsFile := filepath.Join(outDir, "deals_"+suffix)
	if err := utils.WriteDealsToCSV(deals, dealsFile); err != nil {
		return fmt.Errorf("writing deals CSV: %w", err)
	}
	appLogger.Info(ctx, "Saved history", map[string]interface{}{"accountID": acc.ID, "trades": len(dashboard.Trades), "deals": len(deals), "tradesFile": tradesFile, "dealsFile": dealsFile})
	return nil
}
