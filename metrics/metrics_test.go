package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	return 0
}

func TestMetricsRegistration(t *testing.T) {
	// metrics are global; this only guards against nil vars and registration panics
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, CacheHits)
	assert.NotNil(t, CacheMisses)
	assert.NotNil(t, CacheErrors)
	assert.NotNil(t, StorageErrors)
	assert.NotNil(t, PlatformRequestsTotal)
	assert.NotNil(t, WorkflowRunsTotal)
}

func TestRecordWorkflowRun(t *testing.T) {
	before := value(t, WorkflowRunsTotal.WithLabelValues("success"))
	RecordWorkflowRun(true)
	assert.Equal(t, before+1, value(t, WorkflowRunsTotal.WithLabelValues("success")))
}

func TestSetCircuitState(t *testing.T) {
	SetCircuitState("open")
	assert.Equal(t, float64(2), value(t, PlatformCircuitState))
	SetCircuitState("half_open")
	assert.Equal(t, float64(1), value(t, PlatformCircuitState))
	SetCircuitState("closed")
	assert.Equal(t, float64(0), value(t, PlatformCircuitState))
}
