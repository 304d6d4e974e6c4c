package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics exposed on /metrics.
var (
	NotificationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_attempts_total",
			Help: "Customer notification attempts by channel, provider and outcome",
		},
		[]string{"channel", "provider", "outcome"},
	)

	NotificationAttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_attempt_duration_seconds",
			Help:    "Duration of customer notification attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	StatusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Persisted order status transitions by target status",
		},
		[]string{"status"},
	)

	RealtimePublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_publish_total",
			Help: "Realtime status publishes by result",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Register registers all Prometheus metrics with the default registry.
func Register() {
	prometheus.MustRegister(NotificationAttemptsTotal)
	prometheus.MustRegister(NotificationAttemptDuration)
	prometheus.MustRegister(StatusTransitionsTotal)
	prometheus.MustRegister(RealtimePublishTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}
