// internal/status/types.go
package status

import (
	"strings"

	"github.com/juju/errors"
)

// ContainerStatus is the lifecycle state reported by the container runtime.
// The zero value means no observation has been received yet.
type ContainerStatus string

const (
	ContainerAbsent   ContainerStatus = ""
	ContainerRunning  ContainerStatus = "running"
	ContainerStopping ContainerStatus = "stopping"
	ContainerStopped  ContainerStatus = "stopped"
)

// HealthStatus is the result of the health poll.
// The zero value means probing is inactive or has not completed a cycle.
type HealthStatus string

const (
	HealthAbsent    HealthStatus = ""
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// InstanceStatus is the derived, user-facing state of the managed service.
type InstanceStatus string

const (
	InstanceAbsent   InstanceStatus = ""
	InstanceStarting InstanceStatus = "starting"
	InstanceRunning  InstanceStatus = "running"
	InstanceStopping InstanceStatus = "stopping"
	InstanceStopped  InstanceStatus = "stopped"
)

// String renders absent values as "unknown" for logs.
func (s ContainerStatus) String() string { return orUnknown(string(s)) }
func (s HealthStatus) String() string    { return orUnknown(string(s)) }
func (s InstanceStatus) String() string  { return orUnknown(string(s)) }

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// ParseContainerStatus parses a container status word. Surrounding whitespace
// and case are ignored; an empty string yields ContainerAbsent.
func ParseContainerStatus(s string) (ContainerStatus, error) {
	switch v := ContainerStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case ContainerAbsent, ContainerRunning, ContainerStopping, ContainerStopped:
		return v, nil
	}
	return ContainerAbsent, errors.NotValidf("container status %q", s)
}
