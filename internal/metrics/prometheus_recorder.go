// internal/metrics/prometheus_recorder.go
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statusd"

// InstanceStatuses lists the label values of the instance status gauge.
// The empty status is exported as "unknown".
var InstanceStatuses = []string{"unknown", "starting", "running", "stopping", "stopped"}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	probeDuration  *prom.HistogramVec
	probeResults   *prom.CounterVec
	transitions    *prom.CounterVec
	instanceStatus *prom.GaugeVec
	writerErrors   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the collectors on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		probeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Duration of health probes",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		probeResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Health probe results by outcome",
		}, []string{"result"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "instance_transitions_total",
			Help:      "Instance status transitions",
		}, []string{"from", "to"}),
		instanceStatus: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "instance_status",
			Help:      "Current instance status (1 for the active status, 0 otherwise)",
		}, []string{"status"}),
		writerErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "writer_errors_total",
			Help:      "Status writer delivery failures",
		}, []string{"writer"}),
	}
	reg.MustRegister(pr.probeDuration, pr.probeResults, pr.transitions, pr.instanceStatus, pr.writerErrors)
	return pr
}

func (p *PrometheusRecorder) ObserveProbe(result ProbeResult, d time.Duration) {
	p.probeDuration.WithLabelValues(string(result)).Observe(d.Seconds())
	p.probeResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncTransition(from, to string) {
	p.transitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) SetInstanceStatus(status string) {
	for _, s := range InstanceStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		p.instanceStatus.WithLabelValues(s).Set(v)
	}
}

func (p *PrometheusRecorder) IncWriterError(writer string) {
	p.writerErrors.WithLabelValues(writer).Inc()
}

// Handler exposes the metrics of g over HTTP.
func Handler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
