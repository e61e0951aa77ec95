package app

import (
	"context"
	"fmt"
	"sync"

	"traderDashboard/internal/ports"
)

// DashboardLoader loads the dashboard of one account.
type DashboardLoader interface {
	Dashboard(ctx context.Context, accountID string) (*Dashboard, error)
}

// Session is one viewer's dashboard. Only the most recent Load counts:
// starting a new load (switching account) cancels the one in flight, and a
// load that finishes after being superseded returns ports.ErrStaleResponse
// instead of its result.
type Session struct {
	loader DashboardLoader

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	accountID string
}

// NewSession creates a session backed by loader.
func NewSession(loader DashboardLoader) *Session {
	return &Session{loader: loader}
}

// Load loads the dashboard of accountID, superseding any earlier load.
func (s *Session) Load(ctx context.Context, accountID string) (*Dashboard, error) {
	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.accountID = accountID
	s.mu.Unlock()

	d, err := s.loader.Dashboard(loadCtx, accountID)

	s.mu.Lock()
	stale := gen != s.gen
	if !stale {
		s.cancel = nil
	}
	s.mu.Unlock()

	if stale {
		return nil, fmt.Errorf("dashboard load of account %s: %w", accountID, ports.ErrStaleResponse)
	}
	return d, err
}

// AccountID returns the account of the latest Load.
func (s *Session) AccountID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID
}

// Close cancels the load in flight; its result will be discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}
