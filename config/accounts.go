package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"traderDashboard/internal/domain"
)

// accountsFile is the layout of the ACCOUNTS_FILE seed list:
//
//	accounts:
//	  - user_id: trader-1
//	    platform: mt5
//	    login: "51234567"
//	    server: ICMarketsSC-Demo
//	    provider_account_id: 1eda642a-a9a3-457c-99af-3bc5e8d5c4c9
//	    name: Phase 1
//	    initial_balance: 100000
type accountsFile struct {
	Accounts []accountEntry `yaml:"accounts"`
}

type accountEntry struct {
	UserID            string  `yaml:"user_id"`
	Platform          string  `yaml:"platform"`
	Login             string  `yaml:"login"`
	Server            string  `yaml:"server"`
	ProviderAccountID string  `yaml:"provider_account_id"`
	Name              string  `yaml:"name"`
	InitialBalance    float64 `yaml:"initial_balance"`
}

// LoadAccountsFile reads and validates a YAML list of trading accounts.
func LoadAccountsFile(path string) ([]*domain.TradingAccount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file '%s': %w", path, err)
	}

	var file accountsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file '%s': %w", path, err)
	}

	var errs []string
	accounts := make([]*domain.TradingAccount, 0, len(file.Accounts))
	for i, e := range file.Accounts {
		acc := &domain.TradingAccount{
			UserID:            strings.TrimSpace(e.UserID),
			Platform:          domain.Platform(strings.ToLower(strings.TrimSpace(e.Platform))),
			Login:             strings.TrimSpace(e.Login),
			Server:            strings.TrimSpace(e.Server),
			ProviderAccountID: strings.TrimSpace(e.ProviderAccountID),
			Name:              strings.TrimSpace(e.Name),
			InitialBalance:    e.InitialBalance,
		}
		if err := acc.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("account #%d: %v", i+1, err))
			continue
		}
		accounts = append(accounts, acc)
	}
	if len(errs) > 0 {
		return nil, errors.New("accounts file validation failed: " + strings.Join(errs, "; "))
	}
	return accounts, nil
}
