package services

import "github.com/prometheus/client_golang/prometheus"

var (
	reviewsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviews_created_total",
		Help: "Reviews accepted and stored.",
	})

	validationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_validation_failures_total",
		Help: "Rejected review submissions by the first rule that failed.",
	}, []string{"rule"})

	reconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storage_reconnect_attempts_total",
		Help: "Failed attempts to restore the database connection.",
	})
)

func init() {
	prometheus.MustRegister(reviewsCreated, validationFailures, reconnectAttempts)
}

// ObserveReconnectAttempt is installed as the storage guard's reconnect hook.
func ObserveReconnectAttempt(int, error) {
	reconnectAttempts.Inc()
}
