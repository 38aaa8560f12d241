// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the code interpreter service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ExecutionBuckets defines histogram buckets suited for script run
// durations, ranging from 10ms to the 120s upper bound of a long run.
var ExecutionBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeinterp_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeinterp_request_duration_seconds",
			Help:    "Request duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"method", "route"},
	)

	// ExecutionsTotal counts finished runs by report status.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeinterp_executions_total",
			Help: "Finished executions",
		},
		[]string{"status"},
	)

	// ExecutionDuration records run wall time in seconds by report status.
	ExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeinterp_execution_duration_seconds",
			Help:    "Execution duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"status"},
	)

	// ExecutionsInFlight tracks the number of runs holding a worker slot.
	ExecutionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeinterp_executions_in_flight",
			Help: "Executions holding a worker slot",
		},
	)

	// ExecutionsRejectedTotal counts submissions turned away because the
	// worker pool stayed saturated past the queue timeout.
	ExecutionsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codeinterp_executions_rejected_total",
			Help: "Submissions rejected by a saturated pool",
		},
	)

	// ExecutionsAbandonedTotal counts runs that ignored interruption past the
	// grace window.
	ExecutionsAbandonedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codeinterp_executions_abandoned_total",
			Help: "Runs abandoned after the grace window",
		},
	)

	// ArtifactsPersisted counts artifacts written to the store by kind.
	ArtifactsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeinterp_artifacts_persisted_total",
			Help: "Artifacts persisted",
		},
		[]string{"kind"},
	)

	// ArtifactsFailed counts artifact writes that failed by kind.
	ArtifactsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeinterp_artifacts_failed_total",
			Help: "Artifact persist failures",
		},
		[]string{"kind"},
	)

	// QueriesTotal counts warehouse queries by backend and outcome.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeinterp_queries_total",
			Help: "Warehouse queries",
		},
		[]string{"backend", "status"},
	)

	// QueryLatency records warehouse query latency in seconds.
	QueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeinterp_query_latency_seconds",
			Help:    "Warehouse query latency",
			Buckets: ExecutionBuckets,
		},
		[]string{"backend"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeinterp_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)

	// AuthRejectedTotal counts requests rejected for missing or invalid
	// credentials.
	AuthRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codeinterp_auth_rejected_total",
			Help: "Authentication rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ExecutionsTotal,
		ExecutionDuration,
		ExecutionsInFlight,
		ExecutionsRejectedTotal,
		ExecutionsAbandonedTotal,
		ArtifactsPersisted,
		ArtifactsFailed,
		QueriesTotal,
		QueryLatency,
		RateLimitRejectedTotal,
		AuthRejectedTotal,
	)
}
