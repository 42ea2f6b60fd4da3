// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the pforte gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// APIBuckets defines histogram buckets suited for dashboard API latencies,
// ranging from 1ms to 10s.
var APIBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pforte_request_duration_seconds",
			Help:    "Request duration",
			Buckets: APIBuckets,
		},
		[]string{"method"},
	)

	// AuthzDecisionsTotal counts gate decisions by outcome and denial reason.
	// Admitted requests carry an empty reason label.
	AuthzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_authz_decisions_total",
			Help: "Authorization decisions",
		},
		[]string{"outcome", "reason"},
	)

	// RecordsInsertedTotal counts records created per tenant.
	RecordsInsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_records_inserted_total",
			Help: "Records inserted",
		},
		[]string{"tenant"},
	)

	// QueryDuration records record query duration in seconds per tenant.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pforte_query_duration_seconds",
			Help:    "Record query duration",
			Buckets: APIBuckets,
		},
		[]string{"tenant"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tenant"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthzDecisionsTotal,
		RecordsInsertedTotal,
		QueryDuration,
		RateLimitRejectedTotal,
	)
}
