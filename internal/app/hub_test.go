package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishToAccountSubscribers(t *testing.T) {
	hub := NewHub(&mockLogger{})

	var a, b, other int
	subA := hub.Subscribe("acc-1", func(AccountEvent) { a++ })
	hub.Subscribe("acc-1", func(AccountEvent) { b++ })
	hub.Subscribe("acc-2", func(AccountEvent) { other++ })
	assert.Equal(t, 2, hub.subscribers("acc-1"))

	hub.Publish(AccountEvent{Type: AccountUpdated, AccountID: "acc-1"})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 0, other)

	subA.Cancel()
	subA.Cancel()
	assert.Equal(t, 1, hub.subscribers("acc-1"))

	hub.Publish(AccountEvent{Type: AccountUpdated, AccountID: "acc-1"})
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestHub_CancelFromCallback(t *testing.T) {
	hub := NewHub(&mockLogger{})

	calls := 0
	var sub *Subscription
	sub = hub.Subscribe("acc-1", func(AccountEvent) {
		calls++
		sub.Cancel()
	})
	assert.NotEmpty(t, sub.ID())

	hub.Publish(AccountEvent{Type: AccountDeleted, AccountID: "acc-1"})
	hub.Publish(AccountEvent{Type: AccountDeleted, AccountID: "acc-1"})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, hub.subscribers("acc-1"))
}

func TestHub_UniqueSubscriptionIDs(t *testing.T) {
	hub := NewHub(&mockLogger{})
	s1 := hub.Subscribe("acc-1", func(AccountEvent) {})
	s2 := hub.Subscribe("acc-1", func(AccountEvent) {})
	assert.NotEqual(t, s1.ID(), s2.ID())
}
