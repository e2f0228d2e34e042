package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for calls to the integration platform and the runs they drive.

var (
	// PlatformRequestsTotal counts platform calls.
	// Labels:
	//   - operation: client operation, e.g. "list_integrations"
	//   - result: "ok", "error" or "rejected" (circuit open or rate limited)
	PlatformRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conduit",
			Subsystem: "platform",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the integration platform",
		},
		[]string{"operation", "result"},
	)

	// PlatformRequestDuration measures platform round trips.
	PlatformRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "conduit",
			Subsystem: "platform",
			Name:      "request_duration_seconds",
			Help:      "Time spent waiting for the integration platform",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// PlatformCircuitState is 0 when closed, 1 when half open and 2 when open.
	PlatformCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "conduit",
			Subsystem: "platform",
			Name:      "circuit_state",
			Help:      "State of the platform circuit breaker (0 closed, 1 half open, 2 open)",
		},
	)

	// ActionTestRunsTotal counts action and method test runs by outcome.
	ActionTestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conduit",
			Subsystem: "actions",
			Name:      "test_runs_total",
			Help:      "Total number of action test runs",
		},
		[]string{"method", "result"},
	)

	// WorkflowRunsTotal counts workflow test runs by outcome.
	WorkflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conduit",
			Subsystem: "workflows",
			Name:      "runs_total",
			Help:      "Total number of workflow test runs",
		},
		[]string{"result"},
	)

	// TemplatesPublishedTotal counts generated templates sent to the platform.
	// Labels:
	//   - kind: "action" or "flow"
	//   - result: "created", "patched", "written" or "error"
	TemplatesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conduit",
			Subsystem: "generator",
			Name:      "templates_total",
			Help:      "Total number of generated templates",
		},
		[]string{"kind", "result"},
	)
)

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordPlatformRequest records one platform call and its duration.
func RecordPlatformRequest(operation, result string, durationSec float64) {
	PlatformRequestsTotal.WithLabelValues(operation, result).Inc()
	PlatformRequestDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordActionTestRun records the outcome of a test run.
func RecordActionTestRun(method string, success bool) {
	ActionTestRunsTotal.WithLabelValues(method, resultLabel(success)).Inc()
}

// RecordWorkflowRun records the outcome of a workflow run.
func RecordWorkflowRun(success bool) {
	WorkflowRunsTotal.WithLabelValues(resultLabel(success)).Inc()
}

// SetCircuitState publishes the breaker state as a number.
func SetCircuitState(state string) {
	switch state {
	case "open":
		PlatformCircuitState.Set(2)
	case "half_open":
		PlatformCircuitState.Set(1)
	default:
		PlatformCircuitState.Set(0)
	}
}
