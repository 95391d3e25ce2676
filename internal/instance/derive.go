// internal/instance/derive.go
package instance

import "github.com/tamzrod/statusd/internal/status"

// Derive computes the next instance status from the container status, the
// health poll result and the previously emitted instance status.
//
// ok is false when the status must not change: the container has not been
// observed yet, or it is running but the health probe has not reported.
//
// An unhealthy probe while the container runs is ambiguous (warming up or
// shutting down); the previous status decides. Once running or stopping has
// been observed, unhealthy means stopping, otherwise starting.
func Derive(container status.ContainerStatus, health status.HealthStatus, previous status.InstanceStatus) (next status.InstanceStatus, ok bool) {
	switch container {
	case status.ContainerRunning:
		switch health {
		case status.HealthHealthy:
			return status.InstanceRunning, true
		case status.HealthUnhealthy:
			if previous == status.InstanceRunning || previous == status.InstanceStopping {
				return status.InstanceStopping, true
			}
			return status.InstanceStarting, true
		default:
			return previous, false
		}
	case status.ContainerStopping:
		return status.InstanceStopping, true
	case status.ContainerStopped:
		return status.InstanceStopped, true
	default:
		return previous, false
	}
}

// Project maps a container transition initiated by the caller to the instance
// status it implies before any observation confirms it.
func Project(container status.ContainerStatus) (status.InstanceStatus, bool) {
	switch container {
	case status.ContainerRunning:
		return status.InstanceStarting, true
	case status.ContainerStopping:
		return status.InstanceStopping, true
	case status.ContainerStopped:
		return status.InstanceStopped, true
	}
	return status.InstanceAbsent, false
}
