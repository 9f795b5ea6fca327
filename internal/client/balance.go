package client

import (
	"sync"

	"github.com/reelprompt/reelprompt/internal/model"
)

// BalanceStore holds the session's last known balance and notifies
// subscribers when it changes.
type BalanceStore struct {
	mu      sync.Mutex
	credits model.Credits
	known   bool
	subs    map[int]func(model.Credits)
	nextID  int
}

// NewBalanceStore creates an empty store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{subs: make(map[int]func(model.Credits))}
}

// Get returns the balance and whether one has been set yet.
func (b *BalanceStore) Get() (model.Credits, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.credits, b.known
}

// Set records credits and notifies subscribers if the value changed.
// Subscribers run on the caller's goroutine after the lock is released.
func (b *BalanceStore) Set(credits model.Credits) {
	b.mu.Lock()
	if b.known && b.credits == credits {
		b.mu.Unlock()
		return
	}
	b.credits = credits
	b.known = true
	fns := make([]func(model.Credits), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(credits)
	}
}

// Subscribe registers fn for future changes. The returned func unregisters it.
func (b *BalanceStore) Subscribe(fn func(model.Credits)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}
