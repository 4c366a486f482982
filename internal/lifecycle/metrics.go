package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// batchItemsTotal counts batch items by operation and outcome
	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_lifecycle_items_total",
		Help: "Tasks processed by rollover and migration, by outcome",
	}, []string{"operation", "outcome"})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_lifecycle_batch_duration_seconds",
		Help:    "Duration of one rollover or migration run",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"operation"})

	statusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_status_changes_total",
		Help: "Status changes by the record they were written to",
	}, []string{"target"})
)
