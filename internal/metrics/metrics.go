// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels for purchase and enhancement counters.
const (
	StatusSuccess      = "success"
	StatusInsufficient = "insufficient"
	StatusAlreadyOwned = "already_owned"
	StatusRateLimited  = "rate_limited"
	StatusFailed       = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Catalog metrics
	IncCatalogCacheHit()
	IncCatalogCacheMiss()

	// Account metrics
	IncAccountCreated()
	IncSignupBonusApplied()

	// Spend metrics
	IncPurchase(status string)
	IncEnhancement(status string)
	ObserveEnhanceDuration(duration time.Duration)
	AddCreditsSpent(units int64)

	// Top-up metrics
	AddCreditsGranted(units int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
