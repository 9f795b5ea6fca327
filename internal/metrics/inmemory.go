package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	CatalogCacheHits       uint64
	CatalogCacheMisses     uint64
	AccountsCreated        uint64
	SignupBonusesApplied   uint64
	Purchases              map[string]uint64
	Enhancements           map[string]uint64
	EnhanceDurationCount   uint64
	EnhanceDurationTotalNs int64
	CreditsSpentUnits      int64
	CreditsGrantedUnits    int64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	catalogCacheHits       uint64
	catalogCacheMisses     uint64
	accountsCreated        uint64
	signupBonusesApplied   uint64
	enhanceDurationCount   uint64
	enhanceDurationTotalNs int64
	creditsSpentUnits      int64
	creditsGrantedUnits    int64

	mu           sync.Mutex
	purchases    map[string]uint64
	enhancements map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		purchases:    make(map[string]uint64),
		enhancements: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	purchases := make(map[string]uint64, len(m.purchases))
	for k, v := range m.purchases {
		purchases[k] = v
	}
	enhancements := make(map[string]uint64, len(m.enhancements))
	for k, v := range m.enhancements {
		enhancements[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		CatalogCacheHits:       atomic.LoadUint64(&m.catalogCacheHits),
		CatalogCacheMisses:     atomic.LoadUint64(&m.catalogCacheMisses),
		AccountsCreated:        atomic.LoadUint64(&m.accountsCreated),
		SignupBonusesApplied:   atomic.LoadUint64(&m.signupBonusesApplied),
		Purchases:              purchases,
		Enhancements:           enhancements,
		EnhanceDurationCount:   atomic.LoadUint64(&m.enhanceDurationCount),
		EnhanceDurationTotalNs: atomic.LoadInt64(&m.enhanceDurationTotalNs),
		CreditsSpentUnits:      atomic.LoadInt64(&m.creditsSpentUnits),
		CreditsGrantedUnits:    atomic.LoadInt64(&m.creditsGrantedUnits),
	}
}

// IncCatalogCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncCatalogCacheHit() {
	atomic.AddUint64(&m.catalogCacheHits, 1)
}

// IncCatalogCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncCatalogCacheMiss() {
	atomic.AddUint64(&m.catalogCacheMisses, 1)
}

// IncAccountCreated increments the account creation counter.
func (m *InMemoryRecorder) IncAccountCreated() {
	atomic.AddUint64(&m.accountsCreated, 1)
}

// IncSignupBonusApplied increments the late bonus counter.
func (m *InMemoryRecorder) IncSignupBonusApplied() {
	atomic.AddUint64(&m.signupBonusesApplied, 1)
}

// IncPurchase counts a purchase attempt by outcome.
func (m *InMemoryRecorder) IncPurchase(status string) {
	m.mu.Lock()
	m.purchases[status]++
	m.mu.Unlock()
}

// IncEnhancement counts an enhancement attempt by outcome.
func (m *InMemoryRecorder) IncEnhancement(status string) {
	m.mu.Lock()
	m.enhancements[status]++
	m.mu.Unlock()
}

// ObserveEnhanceDuration records generation latency.
func (m *InMemoryRecorder) ObserveEnhanceDuration(duration time.Duration) {
	atomic.AddUint64(&m.enhanceDurationCount, 1)
	atomic.AddInt64(&m.enhanceDurationTotalNs, duration.Nanoseconds())
}

// AddCreditsSpent adds debited credit units.
func (m *InMemoryRecorder) AddCreditsSpent(units int64) {
	atomic.AddInt64(&m.creditsSpentUnits, units)
}

// AddCreditsGranted adds granted credit units.
func (m *InMemoryRecorder) AddCreditsGranted(units int64) {
	atomic.AddInt64(&m.creditsGrantedUnits, units)
}
