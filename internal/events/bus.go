// Package events carries balance change notifications from the ledger to
// connected clients.
package events

import (
	"sync"

	"github.com/reelprompt/reelprompt/internal/model"
)

// Reasons attached to balance events.
const (
	ReasonInitialize  = "initialize"
	ReasonPurchase    = "purchase"
	ReasonEnhancement = "enhancement"
	ReasonTopUp       = "top_up"
	ReasonAdminGrant  = "admin_grant"
)

// subscriberBuffer is the per-subscriber queue depth. Events beyond it are
// dropped for that subscriber.
const subscriberBuffer = 8

// BalanceEvent announces a user's new balance.
type BalanceEvent struct {
	UserID  string        `json:"userId"`
	Credits model.Credits `json:"credits"`
	Reason  string        `json:"reason"`

	// Origin identifies the instance that produced the event.
	Origin string `json:"origin,omitempty"`
}

// Bus is an in-process publish/subscribe store keyed by user id.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

type subscription struct {
	ch   chan BalanceEvent
	once sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*subscription]struct{})}
}

// Subscribe registers for events about userID. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(userID string) (<-chan BalanceEvent, func()) {
	sub := &subscription{ch: make(chan BalanceEvent, subscriberBuffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*subscription]struct{})
		b.subs[userID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[userID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, userID)
			}
		}
		b.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Publish delivers evt to every local subscriber of evt.UserID without
// blocking.
func (b *Bus) Publish(evt BalanceEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for sub := range b.subs[evt.UserID] {
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions for userID.
func (b *Bus) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Close ends every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, set := range b.subs {
		for sub := range set {
			sub.close()
		}
	}
	b.subs = nil
}
