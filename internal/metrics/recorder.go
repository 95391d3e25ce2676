// internal/metrics/recorder.go
package metrics

import "time"

// ProbeResult enumerates probe outcome labels.
type ProbeResult string

const (
	ProbeHealthy   ProbeResult = "healthy"
	ProbeUnhealthy ProbeResult = "unhealthy"
	ProbeError     ProbeResult = "error"
)

// Recorder defines observability hooks for the tracker. Implementations may
// forward to Prometheus or elsewhere. NoopRecorder is the default.
type Recorder interface {
	ObserveProbe(result ProbeResult, d time.Duration)
	IncTransition(from, to string)
	SetInstanceStatus(status string)
	IncWriterError(writer string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveProbe(ProbeResult, time.Duration) {}
func (NoopRecorder) IncTransition(string, string)            {}
func (NoopRecorder) SetInstanceStatus(string)                {}
func (NoopRecorder) IncWriterError(string)                   {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
