package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "drycleaning"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	scheduleUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_updates_total",
			Help:      "Count of schedule update operations by target and result.",
		},
		[]string{"target", "result"},
	)

	completions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Count of completion time calculations by result.",
		},
		[]string{"result"},
	)

	rolloverDays = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_rollover_days",
			Help:      "Calendar days a completion was carried past its start date.",
			Buckets:   []float64{0, 1, 2, 3, 7, 14, 31, 90, 365},
		},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by the rate limiter.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, scheduleUpdates, completions, rolloverDays, rateLimited)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncScheduleUpdate records an update outcome. target is "weekday", "week", "date" or "dates".
func IncScheduleUpdate(target string, ok bool) {
	scheduleUpdates.WithLabelValues(target, result(ok)).Inc()
}

// IncCompletion records a calculation outcome: "ok", "no_schedule", "horizon" or "internal".
func IncCompletion(outcome string) {
	completions.WithLabelValues(outcome).Inc()
}

func ObserveRollover(days int) {
	rolloverDays.Observe(float64(days))
}

func IncRateLimited() {
	rateLimited.Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
