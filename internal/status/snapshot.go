// internal/status/snapshot.go
package status

// Snapshot represents exactly what a status writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Instance       InstanceStatus
	Container      ContainerStatus
	Health         HealthStatus
	SecondsInState uint16
}
