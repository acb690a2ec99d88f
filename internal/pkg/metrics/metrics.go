package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

var (
	ClaimsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_claims_submitted_total",
		Help: "Total number of claims submitted",
	})
	ClaimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lostfound_claim_transitions_total",
		Help: "Claim status transitions by resulting status, auto rejections included",
	}, []string{"status"})
	ItemsReturned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_items_returned_total",
		Help: "Total number of items marked returned",
	})
	ItemsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_items_expired_total",
		Help: "Items flipped to expired by the sweeper",
	})
	ConcurrentUpdateRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_item_update_conflicts_total",
		Help: "Optimistic concurrency conflicts observed while updating items",
	})
	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lostfound_notifications_dispatched_total",
		Help: "Notification records persisted by type",
	}, []string{"type"})
	NotificationsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_notifications_dead_lettered_total",
		Help: "Notification batches that could not be delivered",
	})
	PushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lostfound_push_failures_total",
		Help: "Push messages rejected by the provider",
	})
	LifecycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lostfound_claim_lifecycle_duration_seconds",
		Help:    "Duration of claim lifecycle operations",
		Buckets: durationBuckets,
	}, []string{"operation"})
	AnalyticsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lostfound_analytics_duration_seconds",
		Help:    "Duration of analytics aggregations",
		Buckets: durationBuckets,
	})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lostfound_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: durationBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveLifecycle records the duration of a lifecycle operation.
// Call with time.Now() at the start of the operation.
func ObserveLifecycle(operation string, start time.Time) {
	LifecycleDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveAnalytics records the duration of an analytics request.
func ObserveAnalytics(start time.Time) {
	AnalyticsDuration.Observe(time.Since(start).Seconds())
}
