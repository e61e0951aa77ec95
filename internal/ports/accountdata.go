package ports

import (
	"context"
	"time"

	"traderDashboard/internal/domain"
)

// AccountDataSource is a handle on one brokerage account at an account-data
// provider. Each handle is bound to a single account so several accounts
// and sessions can be served concurrently without sharing client state.
type AccountDataSource interface {
	// GetAccountInformation returns the current balance and equity.
	GetAccountInformation(ctx context.Context) (*domain.AccountSnapshot, error)

	// GetHistoryOrders returns historical orders in the [from, to] window.
	GetHistoryOrders(ctx context.Context, from, to time.Time) ([]domain.Order, error)

	// GetDealsByPosition returns all deals belonging to a position.
	GetDealsByPosition(ctx context.Context, positionID string) ([]domain.Deal, error)

	// GetDealsByTimeRange returns ledger deals in the [from, to] window.
	GetDealsByTimeRange(ctx context.Context, from, to time.Time) ([]domain.Deal, error)
}

// AccountSourceFactory hands out the data-source handle for a linked account.
type AccountSourceFactory interface {
	// Authorize checks that acc may be served by the configured providers.
	// Returns ErrUnsupportedPlatform if no provider is configured for the platform
	// and ErrPermissionDenied if the provider's credentials belong to another user.
	Authorize(acc *domain.TradingAccount) error

	// ForAccount returns the handle serving acc after authorizing it.
	ForAccount(acc *domain.TradingAccount) (AccountDataSource, error)
}
