package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"traderDashboard/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// MetaApi (MetaTrader 4/5 accounts)
	MetaAPIToken   string
	MetaAPIRegion  string
	MetaAPIBaseURL string

	// Binance futures account
	BinanceAPIKey      string
	BinanceSecretKey   string
	IsTestnet          bool
	BinanceSymbols     []string
	BinanceOwnerUserID string // Only this user may link and read the Binance account

	// Dashboard
	HTTPAddr        string
	HistoryDays     int           // How far back history is fetched
	RefreshInterval time.Duration // Live dashboard refresh period
	FetchTimeout    time.Duration // Budget for one dashboard load
	MaxRetries      int           // Upstream request retries
	EquityLocation  *time.Location
	AccountsFile    string // Optional YAML file of accounts to seed

	// Funded-account rules, fractions of the initial balance
	RuleMaxDailyLoss   float64
	RuleMaxDrawdown    float64
	RuleProfitTarget   float64
	RuleMinTradingDays int

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // "text" (standard log) or "json" (zap)

	// Tracing
	TracingEnabled bool
}

// MetaAPIEnabled reports whether MetaTrader accounts can be served.
func (c *Config) MetaAPIEnabled() bool {
	return c.MetaAPIToken != ""
}

// BinanceEnabled reports whether a Binance futures account can be served.
func (c *Config) BinanceEnabled() bool {
	return c.BinanceAPIKey != "" && c.BinanceSecretKey != ""
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Providers
	cfg.MetaAPIToken = getEnv("METAAPI_TOKEN", "")
	cfg.MetaAPIRegion = getEnv("METAAPI_REGION", "new-york")
	cfg.MetaAPIBaseURL = getEnv("METAAPI_BASE_URL", "")

	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
	cfg.BinanceSymbols = getEnvAsList("BINANCE_SYMBOLS", []string{"BTCUSDT", "ETHUSDT"})
	cfg.BinanceOwnerUserID = strings.TrimSpace(getEnv("BINANCE_OWNER_USER_ID", ""))

	if (cfg.BinanceAPIKey == "") != (cfg.BinanceSecretKey == "") {
		errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET must be set together")
	}
	if cfg.BinanceEnabled() && cfg.BinanceOwnerUserID == "" {
		errs = append(errs, "BINANCE_OWNER_USER_ID is required when Binance keys are set")
	}
	if !cfg.MetaAPIEnabled() && !cfg.BinanceEnabled() {
		errs = append(errs, "at least one provider must be configured (METAAPI_TOKEN or BINANCE_API_KEY/BINANCE_API_SECRET)")
	}

	// Dashboard
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.HistoryDays, err = getEnvAsIntRequired("HISTORY_DAYS", 90)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HISTORY_DAYS: %v", err))
	} else if cfg.HistoryDays <= 0 {
		errs = append(errs, "HISTORY_DAYS must be positive")
	}

	refreshSeconds, err := getEnvAsIntRequired("REFRESH_INTERVAL_SECONDS", 30)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REFRESH_INTERVAL_SECONDS: %v", err))
	} else if refreshSeconds <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_SECONDS must be positive")
	}
	cfg.RefreshInterval = time.Duration(refreshSeconds) * time.Second

	fetchTimeoutSeconds, err := getEnvAsIntRequired("FETCH_TIMEOUT_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FETCH_TIMEOUT_SECONDS: %v", err))
	} else if fetchTimeoutSeconds <= 0 {
		errs = append(errs, "FETCH_TIMEOUT_SECONDS must be positive")
	}
	cfg.FetchTimeout = time.Duration(fetchTimeoutSeconds) * time.Second

	cfg.MaxRetries = getEnvAsInt("MAX_RETRIES", 3)
	if cfg.MaxRetries < 0 {
		errs = append(errs, "MAX_RETRIES cannot be negative")
	}

	tz := getEnv("EQUITY_TIMEZONE", "UTC")
	cfg.EquityLocation, err = time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid EQUITY_TIMEZONE %q: %v", tz, err))
	}

	cfg.AccountsFile = getEnv("ACCOUNTS_FILE", "")

	// Funded-account rules
	cfg.RuleMaxDailyLoss, err = getEnvAsFloatRequired("RULE_MAX_DAILY_LOSS", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RULE_MAX_DAILY_LOSS: %v", err))
	} else if cfg.RuleMaxDailyLoss < 0 || cfg.RuleMaxDailyLoss >= 1.0 {
		errs = append(errs, "RULE_MAX_DAILY_LOSS must be between 0.0 (inclusive) and 1.0 (exclusive)")
	}

	cfg.RuleMaxDrawdown, err = getEnvAsFloatRequired("RULE_MAX_DRAWDOWN", 0.10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RULE_MAX_DRAWDOWN: %v", err))
	} else if cfg.RuleMaxDrawdown < 0 || cfg.RuleMaxDrawdown >= 1.0 {
		errs = append(errs, "RULE_MAX_DRAWDOWN must be between 0.0 (inclusive) and 1.0 (exclusive)")
	}

	cfg.RuleProfitTarget, err = getEnvAsFloatRequired("RULE_PROFIT_TARGET", 0.08)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RULE_PROFIT_TARGET: %v", err))
	} else if cfg.RuleProfitTarget < 0 {
		errs = append(errs, "RULE_PROFIT_TARGET cannot be negative")
	}

	cfg.RuleMinTradingDays = getEnvAsInt("RULE_MIN_TRADING_DAYS", 4)
	if cfg.RuleMinTradingDays < 0 {
		errs = append(errs, "RULE_MIN_TRADING_DAYS cannot be negative")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trader_dashboard.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'text' or 'json'")
	}

	cfg.TracingEnabled = getEnvAsBool("TRACING_ENABLED", false)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
