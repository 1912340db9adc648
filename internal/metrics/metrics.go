// Package metrics defines the Prometheus instruments shared by the analysis
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters exported under the lexiread namespace.
type Metrics struct {
	cacheLookups     *prometheus.CounterVec
	backendAttempts  *prometheus.CounterVec
	analysisFailures *prometheus.CounterVec
	overlayBuilds    *prometheus.CounterVec
}

// New registers the instruments on reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration against the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexiread",
			Name:      "phrase_cache_lookups_total",
			Help:      "Phrase cache lookups on selection, by result (hit, miss).",
		}, []string{"result"}),
		backendAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexiread",
			Name:      "backend_attempts_total",
			Help:      "Individual requests sent to the analysis backend, by outcome.",
		}, []string{"provider", "outcome"}),
		analysisFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexiread",
			Name:      "analysis_failures_total",
			Help:      "Analyses that ended in an error record, by reason.",
		}, []string{"reason"}),
		overlayBuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexiread",
			Name:      "overlay_renders_total",
			Help:      "Overlay renders, by whether the memoized tree was reused.",
		}, []string{"result"}),
	}
}

// CacheLookup counts a phrase cache lookup.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// BackendAttempt counts one backend request. outcome is "success" or "failure".
func (m *Metrics) BackendAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.backendAttempts.WithLabelValues(provider, outcome).Inc()
}

// AnalysisFailure counts an analysis that produced an error record.
func (m *Metrics) AnalysisFailure(reason string) {
	if m == nil {
		return
	}
	m.analysisFailures.WithLabelValues(reason).Inc()
}

// OverlayRender counts an overlay render. reused reports a memo hit.
func (m *Metrics) OverlayRender(reused bool) {
	if m == nil {
		return
	}
	result := "built"
	if reused {
		result = "reused"
	}
	m.overlayBuilds.WithLabelValues(result).Inc()
}
