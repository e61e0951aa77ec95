package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"traderDashboard/config"
	"traderDashboard/internal/adapters/binanceclient"
	"traderDashboard/internal/adapters/logger"
	"traderDashboard/internal/adapters/metaapi"
	"traderDashboard/internal/adapters/sqlite"
	"traderDashboard/internal/adapters/tracing"
	"traderDashboard/internal/app"
	"traderDashboard/internal/interfaces/httpapi"
	"traderDashboard/internal/ports"
)

const (
	serviceName     = "trader-dashboard"
	serviceVersion  = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, syncLogger := newLogger(cfg)
	defer syncLogger()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Tracing
	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize tracing")
		log.Fatalf("FATAL: Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			appLogger.Error(context.Background(), err, "Error shutting down tracing")
		}
	}()

	// 4. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 5. Initialize Account Data Sources (MetaApi and Binance Adapters)
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
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize MetaApi client")
			log.Fatalf("FATAL: Failed to initialize MetaApi client: %v", err)
		}
		registryCfg.MetaTrader = func(providerAccountID string) ports.AccountDataSource {
			return metaClient.Account(providerAccountID)
		}
		appLogger.Info(context.Background(), "MetaApi client initialized", map[string]interface{}{"region": cfg.MetaAPIRegion})
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
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		registryCfg.Binance = binanceClient
		registryCfg.BinanceOwner = cfg.BinanceOwnerUserID
		appLogger.Info(context.Background(), "Binance client initialized")
	}
	sources, err := app.NewSourceRegistry(registryCfg)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize account data sources")
		log.Fatalf("FATAL: Failed to initialize account data sources: %v", err)
	}

	// 6. Initialize Application Service
	dashboardService, err := app.NewDashboardService(cfg, appLogger, repo, sources)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize dashboard service")
		log.Fatalf("FATAL: Failed to initialize dashboard service: %v", err)
	}
	appLogger.Info(context.Background(), "Dashboard service initialized")

	// 7. Seed Accounts from file
	if cfg.AccountsFile != "" {
		accounts, err := config.LoadAccountsFile(cfg.AccountsFile)
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to load accounts file", map[string]interface{}{"path": cfg.AccountsFile})
			log.Fatalf("FATAL: Failed to load accounts file: %v", err)
		}
		created, err := dashboardService.SeedAccounts(context.Background(), accounts)
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to seed accounts")
			log.Fatalf("FATAL: Failed to seed accounts: %v", err)
		}
		appLogger.Info(context.Background(), "Accounts seeded", map[string]interface{}{"inFile": len(accounts), "created": created})
	}

	// 8. Start the HTTP API
	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(dashboardService, appLogger, cfg.RefreshInterval)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info(context.Background(), "HTTP server starting", map[string]interface{}{"addr": cfg.HTTPAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(context.Background(), err, "HTTP server failed")
			log.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info(context.Background(), "Shutdown signal received", map[string]interface{}{"signal": sig.String()})

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error(context.Background(), err, "HTTP server forced to shutdown")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}

// newLogger returns the configured logger and a flush func to defer.
func newLogger(cfg *config.Config) (ports.Logger, func()) {
	if cfg.LogFormat == "json" {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize zap logger: %v", err)
		}
		return zl, func() { _ = zl.Sync() }
	}
	return logger.NewStdLogger(cfg.LogLevel), func() {}
}
