package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "reelprompt_catalog_cache_hits_total %d\n", snap.CatalogCacheHits)
	writeMetric(w, "reelprompt_catalog_cache_misses_total %d\n", snap.CatalogCacheMisses)

	writeMetric(w, "reelprompt_accounts_created_total %d\n", snap.AccountsCreated)
	writeMetric(w, "reelprompt_signup_bonuses_applied_total %d\n", snap.SignupBonusesApplied)

	writeLabeled(w, "reelprompt_purchases_total", snap.Purchases)
	writeLabeled(w, "reelprompt_enhancements_total", snap.Enhancements)

	writeMetric(w, "reelprompt_enhance_duration_seconds_count %d\n", snap.EnhanceDurationCount)
	writeMetric(w, "reelprompt_enhance_duration_seconds_sum %.6f\n", float64(snap.EnhanceDurationTotalNs)/1e9)

	writeMetric(w, "reelprompt_credits_spent_total %.2f\n", float64(snap.CreditsSpentUnits)/float64(model.CreditUnit))
	writeMetric(w, "reelprompt_credits_granted_total %.2f\n", float64(snap.CreditsGrantedUnits)/float64(model.CreditUnit))
}

// writeLabeled emits one line per status label in a stable order.
func writeLabeled(w http.ResponseWriter, name string, counts map[string]uint64) {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		writeMetric(w, "%s{status=%q} %d\n", name, status, counts[status])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
