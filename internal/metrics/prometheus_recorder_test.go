// internal/metrics/prometheus_recorder_test.go
package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveProbe(ProbeHealthy, 10*time.Millisecond)
	r.ObserveProbe(ProbeError, time.Second)
	r.IncTransition("starting", "running")
	r.SetInstanceStatus("running")
	r.IncWriterError("modbus")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.probeResults.WithLabelValues("healthy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.probeResults.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("starting", "running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.instanceStatus.WithLabelValues("running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.instanceStatus.WithLabelValues("stopped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.writerErrors.WithLabelValues("modbus")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "statusd_instance_transitions_total"))
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopRecorder{}, OrNoop(nil))
	assert.NotPanics(t, func() {
		OrNoop(nil).ObserveProbe(ProbeUnhealthy, time.Second)
	})
}
