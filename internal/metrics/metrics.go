// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal counts HTTP requests handled by the service.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// ScriptExecutionsTotal counts completed script executions by outcome.
	ScriptExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "script_executions_total",
			Help: "Total number of script executions by terminal status.",
		},
		[]string{"script_name", "status"},
	)

	// ExecutionUpdateFailuresTotal counts terminal updates that could not be
	// persisted, leaving a record stuck in running until reconciled.
	ExecutionUpdateFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "execution_update_failures_total",
			Help: "Total number of terminal execution updates that failed to persist.",
		},
	)

	// ExecutionsReconciledTotal counts abandoned running executions that the
	// reconciler force-failed.
	ExecutionsReconciledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "executions_reconciled_total",
			Help: "Total number of abandoned executions force-failed by the reconciler.",
		},
	)
)
