package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// AccountSnapshot is the point-in-time state of a trading account.
type AccountSnapshot struct {
	Balance    float64 // Ledger balance, excludes floating P&L
	Equity     float64 // Balance plus unrealized P&L of open positions
	Margin     float64
	FreeMargin float64
	Leverage   float64
	Currency   string
	Server     string
	Platform   Platform
}

// TradingAccount is a brokerage account a dashboard user has linked.
type TradingAccount struct {
	ID                string   // Unique identifier (UUID)
	UserID            string   // Owner of the link
	Platform          Platform // mt4, mt5 or binance
	Login             string   // Broker login
	Server            string   // Broker server name
	ProviderAccountID string   // Account ID at the data provider (MetaApi account ID)
	Name              string   // Display name
	InitialBalance    float64  // Starting balance used by funded-account rules
	Archived          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the fields required to link an account.
func (a *TradingAccount) Validate() error {
	var errs []string
	if strings.TrimSpace(a.UserID) == "" {
		errs = append(errs, "user ID is required")
	}
	if !a.Platform.Valid() {
		errs = append(errs, fmt.Sprintf("unsupported platform %q", a.Platform))
	}
	if a.Platform != PlatformBinance {
		if strings.TrimSpace(a.Login) == "" {
			errs = append(errs, "login is required")
		}
		if strings.TrimSpace(a.Server) == "" {
			errs = append(errs, "server is required")
		}
		if strings.TrimSpace(a.ProviderAccountID) == "" {
			errs = append(errs, "provider account ID is required")
		}
	}
	if math.IsNaN(a.InitialBalance) || math.IsInf(a.InitialBalance, 0) || a.InitialBalance < 0 {
		errs = append(errs, "initial balance must be a non-negative number")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// AccountSettingsUpdate is a partial update of a linked account's
// user-editable settings. Nil fields are left untouched.
type AccountSettingsUpdate struct {
	Name           *string  `json:"name,omitempty"`
	InitialBalance *float64 `json:"initialBalance,omitempty"`
	Archived       *bool    `json:"archived,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u AccountSettingsUpdate) IsEmpty() bool {
	return u.Name == nil && u.InitialBalance == nil && u.Archived == nil
}

// Validate checks the update before it is merged.
func (u AccountSettingsUpdate) Validate() error {
	if u.IsEmpty() {
		return errors.New("settings update is empty")
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return errors.New("name cannot be blank")
		}
		if len(name) > 64 {
			return errors.New("name must be at most 64 characters")
		}
	}
	if u.InitialBalance != nil {
		v := *u.InitialBalance
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.New("initial balance must be a non-negative number")
		}
	}
	return nil
}

// ApplyTo merges the update into acc. Call Validate first.
func (u AccountSettingsUpdate) ApplyTo(acc *TradingAccount) {
	if u.Name != nil {
		acc.Name = strings.TrimSpace(*u.Name)
	}
	if u.InitialBalance != nil {
		acc.InitialBalance = *u.InitialBalance
	}
	if u.Archived != nil {
		acc.Archived = *u.Archived
	}
}
