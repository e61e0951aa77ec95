package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.AccountRepository interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
	now    func() time.Time
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trader_dashboard.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger, now: func() time.Time { return time.Now().UTC() }}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trading_accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		login TEXT NOT NULL DEFAULT '',
		server TEXT NOT NULL DEFAULT '',
		provider_account_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		initial_balance REAL NOT NULL DEFAULT 0,
		archived INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, platform, login, server)
	);
	CREATE INDEX IF NOT EXISTS idx_trading_accounts_user ON trading_accounts (user_id, created_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

const accountColumns = `id, user_id, platform, login, server, provider_account_id, name,
	initial_balance, archived, created_at, updated_at`

// Create saves a new account link and returns its assigned ID.
func (r *Repository) Create(ctx context.Context, acc *domain.TradingAccount) (string, error) {
	if err := acc.Validate(); err != nil {
		return "", fmt.Errorf("invalid trading account: %w: %w", ports.ErrInvalidRequest, err)
	}

	const query = `
	INSERT INTO trading_accounts (` + accountColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := r.now()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		acc.ID, acc.UserID, string(acc.Platform), strings.TrimSpace(acc.Login), strings.TrimSpace(acc.Server),
		acc.ProviderAccountID, acc.Name, acc.InitialBalance, acc.Archived, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("account %s@%s already linked for user %s: %w", acc.Login, acc.Server, acc.UserID, ports.ErrDuplicateEntry)
		}
		return "", fmt.Errorf("failed to insert trading account for user %s: %w: %w", acc.UserID, ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Trading account created", map[string]interface{}{"accountID": acc.ID, "userID": acc.UserID, "platform": acc.Platform})
	return acc.ID, nil
}

// FindByID retrieves an account by its ID. Returns nil, nil if not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.TradingAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM trading_accounts WHERE id = ?`
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query trading account %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return acc, nil
}

// FindByUser retrieves a user's accounts ordered by creation time.
func (r *Repository) FindByUser(ctx context.Context, userID string, includeArchived bool) ([]*domain.TradingAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM trading_accounts WHERE user_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return r.queryAccounts(ctx, query, userID)
}

// FindAll retrieves every linked account.
func (r *Repository) FindAll(ctx context.Context) ([]*domain.TradingAccount, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM trading_accounts ORDER BY created_at ASC, id ASC`)
}

// UpdateSettings applies a validated settings update inside a transaction and
// returns the updated account.
func (r *Repository) UpdateSettings(ctx context.Context, id string, upd domain.AccountSettingsUpdate) (*domain.TradingAccount, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings update: %w: %w", ports.ErrInvalidRequest, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	acc, err := scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM trading_accounts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trading account %s not found for update: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load trading account %s: %w: %w", id, ports.ErrQueryFailed, err)
	}

	upd.ApplyTo(acc)
	acc.UpdatedAt = r.now()

	const query = `
	UPDATE trading_accounts
	SET name = ?, initial_balance = ?, archived = ?, updated_at = ?
	WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, acc.Name, acc.InitialBalance, acc.Archived, acc.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("failed to update trading account %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settings update for %s: %w: %w", id, ports.ErrQueryFailed, err)
	}

	r.logger.Debug(ctx, "Trading account settings updated", map[string]interface{}{"accountID": id})
	return acc, nil
}

// Delete removes an account link.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trading_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trading account %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trading account %s not found for delete: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trading account deleted", map[string]interface{}{"accountID": id})
	return nil
}

func (r *Repository) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]*domain.TradingAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trading accounts: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	accounts := make([]*domain.TradingAccount, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trading account row: %w: %w", ports.ErrQueryFailed, err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trading account rows: %w: %w", ports.ErrQueryFailed, err)
	}
	return accounts, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*domain.TradingAccount, error) {
	var acc domain.TradingAccount
	var platform string
	err := row.Scan(&acc.ID, &acc.UserID, &platform, &acc.Login, &acc.Server, &acc.ProviderAccountID,
		&acc.Name, &acc.InitialBalance, &acc.Archived, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acc.Platform = domain.Platform(platform)
	return &acc, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
