package app

import (
	"context"
	"fmt"
	"sync"

	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
)

// SourceRegistry hands out one account-data handle per linked account. It
// implements ports.AccountSourceFactory.
type SourceRegistry struct {
	metaTrader func(providerAccountID string) ports.AccountDataSource
	binance    ports.AccountDataSource
	owner      string
	logger     ports.Logger

	mu      sync.Mutex
	handles map[string]ports.AccountDataSource
}

// SourceRegistryConfig configures the providers behind a SourceRegistry.
// A nil provider leaves its platforms unsupported.
type SourceRegistryConfig struct {
	// MetaTrader returns the handle of a MetaApi account (mt4 and mt5).
	MetaTrader func(providerAccountID string) ports.AccountDataSource
	// Binance serves binance accounts. Its API keys belong to a single user,
	// BinanceOwner, and only that user's accounts are served by it.
	Binance      ports.AccountDataSource
	BinanceOwner string
	Logger       ports.Logger
}

// NewSourceRegistry creates a registry over the configured providers.
func NewSourceRegistry(cfg SourceRegistryConfig) (*SourceRegistry, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SourceRegistry")
	}
	if cfg.MetaTrader == nil && cfg.Binance == nil {
		return nil, fmt.Errorf("no account data provider configured: %w", ports.ErrConfigurationError)
	}
	if cfg.Binance != nil && cfg.BinanceOwner == "" {
		return nil, fmt.Errorf("binance provider has no owner user: %w", ports.ErrConfigurationError)
	}
	return &SourceRegistry{
		metaTrader: cfg.MetaTrader,
		binance:    cfg.Binance,
		owner:      cfg.BinanceOwner,
		logger:     cfg.Logger,
		handles:    make(map[string]ports.AccountDataSource),
	}, nil
}

// Authorize checks that a provider is configured for acc's platform and, for
// binance, that acc belongs to the owner of the API keys.
func (r *SourceRegistry) Authorize(acc *domain.TradingAccount) error {
	if acc == nil {
		return fmt.Errorf("nil account: %w", ports.ErrInvalidRequest)
	}
	switch acc.Platform {
	case domain.PlatformMT4, domain.PlatformMT5:
		if r.metaTrader != nil {
			return nil
		}
	case domain.PlatformBinance:
		if r.binance == nil {
			break
		}
		if acc.UserID != r.owner {
			return fmt.Errorf("binance account %s of user %q: %w", acc.ID, acc.UserID, ports.ErrPermissionDenied)
		}
		return nil
	}
	return fmt.Errorf("platform %q of account %s: %w", acc.Platform, acc.ID, ports.ErrUnsupportedPlatform)
}

// ForAccount returns the cached handle of acc, creating it on first use.
func (r *SourceRegistry) ForAccount(acc *domain.TradingAccount) (ports.AccountDataSource, error) {
	if err := r.Authorize(acc); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[acc.ID]; ok {
		return h, nil
	}

	src := r.binance
	if acc.Platform != domain.PlatformBinance {
		src = r.metaTrader(acc.ProviderAccountID)
	}
	if src == nil {
		return nil, fmt.Errorf("platform %q of account %s: %w", acc.Platform, acc.ID, ports.ErrUnsupportedPlatform)
	}

	h := &tracedSource{next: src, platform: string(acc.Platform), accountID: acc.ID}
	r.handles[acc.ID] = h
	r.logger.Debug(context.Background(), "Account data source created", map[string]interface{}{"accountID": acc.ID, "platform": acc.Platform})
	return h, nil
}

// Forget drops the cached handle of an account, e.g. after it was unlinked.
func (r *SourceRegistry) Forget(accountID string) {
	r.mu.Lock()
	delete(r.handles, accountID)
	r.mu.Unlock()
}
