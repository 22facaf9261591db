// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SmartSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_searches_total",
			Help: "Total number of smart-search requests by outcome",
		},
		[]string{"outcome"},
	)

	SearchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_tasks_total",
			Help: "Total number of dispatched provider search tasks by status",
		},
		[]string{"status"},
	)

	SearchFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_fallbacks_total",
			Help: "Total number of nation-wide fallback searches issued",
		},
	)

	SmartSearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "smart_search_duration_seconds",
			Help: "Duration of smart-search requests in seconds",
		},
	)

	RankingDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ranking_degraded_total",
			Help: "Total number of searches that fell back to score-0 ranking",
		},
	)

	LocationCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_cache_requests_total",
			Help: "Location resolution cache requests by result",
		},
		[]string{"result"},
	)
)
