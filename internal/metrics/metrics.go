package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsSubmittedTotal tracks accepted submissions per request type
	RequestsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_requests_submitted_total",
			Help: "Total number of requests accepted and persisted",
		},
		[]string{"request_type"},
	)

	// ValidationFailuresTotal tracks rejected submissions per failure code
	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_validation_failures_total",
			Help: "Total number of submissions rejected by validation",
		},
		[]string{"code"},
	)

	// RetryAttemptsTotal tracks failed attempts of remote operations
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_retry_attempts_total",
			Help: "Total number of failed remote-call attempts",
		},
		[]string{"operation"},
	)

	// RetryExhaustedTotal tracks remote operations that gave up
	RetryExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_retry_exhausted_total",
			Help: "Total number of remote operations that exhausted retries",
		},
		[]string{"operation"},
	)

	// NotifyFailuresTotal tracks acknowledgement emails that could not be sent
	NotifyFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_notify_failures_total",
			Help: "Total number of failed acknowledgement emails",
		},
	)

	// StoreLatency tracks record store call latency
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_store_latency_seconds",
			Help:    "Record store call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
