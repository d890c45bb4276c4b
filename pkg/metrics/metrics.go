// Package metrics exposes Prometheus counters for the click pipeline.
//
// Metrics are served at /metrics in Prometheus text format:
//
//	curl http://localhost:8080/metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons for ClicksSkipped.
const (
	ReasonBot      = "bot"
	ReasonHead     = "head"
	ReasonPrefetch = "prefetch"
	ReasonNoStat   = "no_stat"
)

var (
	ClicksRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_recorded_total",
			Help: "Clicks committed to the analytics tables",
		},
	)

	ClicksSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clicks_skipped_total",
			Help: "Redirects that were not recorded as clicks",
		},
		[]string{"reason"},
	)

	ClickRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_record_failures_total",
			Help: "Click transactions that failed and were rolled back",
		},
	)

	AnalyticsWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_write_duration_seconds",
			Help:    "Time spent committing one click transaction",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_query_errors_total",
			Help: "Failed analytics read queries",
		},
		[]string{"query"},
	)
)
