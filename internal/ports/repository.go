package ports

import (
	"context"

	"traderDashboard/internal/domain"
)

// AccountRepository stores the trading accounts users have linked.
type AccountRepository interface {
	// Create saves a new account link and returns its assigned ID.
	// Returns ErrDuplicateEntry if the user already linked the same login/server/platform.
	Create(ctx context.Context, acc *domain.TradingAccount) (string, error)
	// FindByID retrieves an account by its ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id string) (*domain.TradingAccount, error)
	// FindByUser retrieves a user's accounts ordered by creation time.
	FindByUser(ctx context.Context, userID string, includeArchived bool) ([]*domain.TradingAccount, error)
	// FindAll retrieves every linked account.
	FindAll(ctx context.Context) ([]*domain.TradingAccount, error)
	// UpdateSettings applies a validated settings update and returns the updated account.
	// Returns ErrNotFound if the account does not exist.
	UpdateSettings(ctx context.Context, id string, upd domain.AccountSettingsUpdate) (*domain.TradingAccount, error)
	// Delete removes an account link. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
