// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RebatesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebates_created_total",
			Help: "Total number of rebates created",
		},
		[]string{"branch"},
	)

	RebateDays = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rebate_days",
			Help:    "Distribution of stored rebate lengths in days",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)

	RebateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebate_rejections_total",
			Help: "Rebate writes refused, by reason",
		},
		[]string{"reason"},
	)

	RebateUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebate_updates_total",
			Help: "Rebate edits processed, by result",
		},
		[]string{"result"},
	)

	IdentityResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_resolutions_total",
			Help: "Rebate identity lookups, by the strategy that matched",
		},
		[]string{"strategy"},
	)

	StatsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_lookups_total",
			Help: "Statistics cache lookups, by result",
		},
		[]string{"result"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
