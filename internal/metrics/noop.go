package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncCatalogCacheHit is a no-op.
func (n *NoopRecorder) IncCatalogCacheHit() {}

// IncCatalogCacheMiss is a no-op.
func (n *NoopRecorder) IncCatalogCacheMiss() {}

// IncAccountCreated is a no-op.
func (n *NoopRecorder) IncAccountCreated() {}

// IncSignupBonusApplied is a no-op.
func (n *NoopRecorder) IncSignupBonusApplied() {}

// IncPurchase is a no-op.
func (n *NoopRecorder) IncPurchase(status string) {}

// IncEnhancement is a no-op.
func (n *NoopRecorder) IncEnhancement(status string) {}

// ObserveEnhanceDuration is a no-op.
func (n *NoopRecorder) ObserveEnhanceDuration(duration time.Duration) {}

// AddCreditsSpent is a no-op.
func (n *NoopRecorder) AddCreditsSpent(units int64) {}

// AddCreditsGranted is a no-op.
func (n *NoopRecorder) AddCreditsGranted(units int64) {}
