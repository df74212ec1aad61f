// Package metrics exposes Prometheus instruments for annexport.
//
// Collection is opt-in: nothing is registered until Init is called, and
// all record functions are no-ops before that. This keeps the default
// CLI path at zero overhead, matching how the rest of the codebase
// treats observability.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry

	batchGroups     *prometheus.CounterVec
	batchedCalls    *prometheus.CounterVec
	processFailures *prometheus.CounterVec
	importDuration  prometheus.Histogram
	importedURLs    prometheus.Counter
)

// Init creates the registry and registers all instruments.
// Safe to call more than once; later calls are ignored.
func Init() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	reg := prometheus.NewRegistry()

	batchGroups = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "annexport_batch_groups_total",
			Help: "Physical tool invocations, by executable name",
		},
		[]string{"tool"},
	)
	batchedCalls = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "annexport_batched_calls_total",
			Help: "Logical calls folded into batch invocations, by executable name",
		},
		[]string{"tool"},
	)
	processFailures = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "annexport_process_failures_total",
			Help: "Tool invocations that exited non-zero, by executable name",
		},
		[]string{"tool"},
	)
	importDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annexport_import_duration_seconds",
			Help:    "Wall time of ImportURLs runs",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	importedURLs = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "annexport_imported_urls_total",
			Help: "URLs that resolved to a content key during import",
		},
	)

	registry = reg
}

// IsEnabled reports whether Init has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// Registry returns the metrics registry, or nil when disabled.
func Registry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// RecordBatchGroup counts one physical invocation carrying calls
// logical calls.
func RecordBatchGroup(tool string, calls int) {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return
	}
	batchGroups.WithLabelValues(tool).Inc()
	batchedCalls.WithLabelValues(tool).Add(float64(calls))
}

// RecordProcessFailure counts one non-zero tool exit.
func RecordProcessFailure(tool string) {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return
	}
	processFailures.WithLabelValues(tool).Inc()
}

// RecordImport observes one completed ImportURLs run.
func RecordImport(seconds float64, resolved int) {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return
	}
	importDuration.Observe(seconds)
	importedURLs.Add(float64(resolved))
}
