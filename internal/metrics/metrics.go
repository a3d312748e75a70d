// Package metrics provides Prometheus metrics for the gaze-to-translation
// pipeline: fixation triggers, memory gate outcomes, external call latencies,
// and maintenance sweeps. Collectors are registered on the default registry
// via promauto and exposed through the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "glossa"
)

// LatencyBuckets defines histogram buckets for external call latencies (in
// seconds). OCR and translation calls sit in the hundreds of milliseconds to
// tens of seconds range, so the buckets skew high.
var LatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 0.75, 1.0, 1.5, 2.0, 3.0, 5.0,
	7.5, 10.0, 15.0, 20.0, 30.0,
}

var (
	// FixationTriggers counts confirmed fixations per session outcome.
	FixationTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixation_triggers_total",
			Help:      "Total number of confirmed fixation triggers",
		},
	)

	// LookupResults counts completed lookups by outcome: "cache_hit",
	// "translated", "no_text", or "error".
	LookupResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_results_total",
			Help:      "Total number of completed lookups by outcome",
		},
		[]string{"outcome"},
	)

	// LookupLatency tracks end-to-end lookup latency from trigger to result.
	LookupLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_latency_seconds",
			Help:      "End-to-end lookup latency in seconds",
			Buckets:   LatencyBuckets,
		},
	)

	// ExternalCallLatency tracks OCR and translation call latency by stage
	// ("ocr", "translate") and result ("ok", "error").
	ExternalCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_latency_seconds",
			Help:      "External OCR and translation call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"stage", "result"},
	)

	// FragmentsCreated counts newly created memory fragments.
	FragmentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_created_total",
			Help:      "Total number of memory fragments created",
		},
	)

	// FragmentsPurged counts fragments removed by the stale sweep.
	FragmentsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_purged_total",
			Help:      "Total number of stale fragments purged",
		},
	)

	// ActiveSessions gauges the number of connected gaze sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of currently connected gaze sessions",
		},
	)
)
