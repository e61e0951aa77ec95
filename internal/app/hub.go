package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
)

// AccountEventType tells what happened to a linked account.
type AccountEventType string

const (
	AccountUpdated AccountEventType = "updated"
	AccountDeleted AccountEventType = "deleted"
)

// AccountEvent is delivered to the subscribers of an account.
type AccountEvent struct {
	Type      AccountEventType
	AccountID string
	Account   *domain.TradingAccount // nil for AccountDeleted
	At        time.Time
}

// Hub fans account change events out to explicit subscribers.
type Hub struct {
	logger ports.Logger

	mu   sync.RWMutex
	subs map[string]map[string]func(AccountEvent) // accountID -> subscription ID -> callback
}

// NewHub creates an empty Hub.
func NewHub(logger ports.Logger) *Hub {
	return &Hub{logger: logger, subs: make(map[string]map[string]func(AccountEvent))}
}

// Subscription is the handle returned by Subscribe. Cancel stops delivery.
type Subscription struct {
	id        string
	accountID string
	hub       *Hub
	once      sync.Once
}

// ID returns the unique subscription ID.
func (s *Subscription) ID() string { return s.id }

// Cancel unsubscribes. It is safe to call more than once and from within
// the callback.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s.accountID, s.id)
	})
}

// Subscribe registers fn for events of accountID. Callbacks run on the
// publisher's goroutine and must not block.
func (h *Hub) Subscribe(accountID string, fn func(AccountEvent)) *Subscription {
	sub := &Subscription{id: uuid.NewString(), accountID: accountID, hub: h}

	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[string]func(AccountEvent))
	}
	h.subs[accountID][sub.id] = fn
	h.mu.Unlock()

	h.logger.Debug(context.Background(), "Account subscription added", map[string]interface{}{"accountID": accountID, "subscriptionID": sub.id})
	return sub
}

// Publish delivers ev to every current subscriber of ev.AccountID.
func (h *Hub) Publish(ev AccountEvent) {
	h.mu.RLock()
	fns := make([]func(AccountEvent), 0, len(h.subs[ev.AccountID]))
	for _, fn := range h.subs[ev.AccountID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// subscribers returns the number of active subscriptions for accountID.
func (h *Hub) subscribers(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}

func (h *Hub) remove(accountID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[accountID], id)
	if len(h.subs[accountID]) == 0 {
		delete(h.subs, accountID)
	}
}
