// Package metrics defines the Prometheus instruments shared across the
// application. All collectors are registered on the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis pipeline metrics
var (
	// AnalysisRunsTotal counts analysis runs by terminal status.
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Total analysis runs by status",
		},
		[]string{"status"},
	)

	// ItemsClassifiedTotal counts classified items by assigned label.
	ItemsClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_classified_total",
			Help: "Total classified items by sentiment label",
		},
		[]string{"label"},
	)

	// ClassifyDuration tracks classifier batch latency by provider and status.
	ClassifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classify_duration_seconds",
			Help:    "Sentiment classification batch duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "status"},
	)

	// SourceFetchDuration tracks scrape API latency by item kind and status.
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Source API fetch duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "status"},
	)
)

// Timeline cache metrics
var (
	// TimelineCacheHits counts timeline cache lookups by outcome.
	TimelineCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_cache_lookups_total",
			Help: "Timeline cache lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)
)
