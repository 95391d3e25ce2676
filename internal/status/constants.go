// internal/status/constants.go
package status

// Status block layout constants.
// These values define the register protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerInstance is the fixed number of registers per tracked instance.
const SlotsPerInstance = 20

// ---- SLOT INDICES ----

// SlotInstanceCode holds the derived instance status.
const SlotInstanceCode = 0

// SlotContainerCode holds the last container status observation.
const SlotContainerCode = 1

// SlotHealthCode holds the last health poll result.
const SlotHealthCode = 2

// SlotSecondsInState holds how long (in seconds) the instance has been outside running.
const SlotSecondsInState = 3

// ---- RESERVED RANGE ----

// Slots 4-10 are reserved for future use.
const SlotReservedStart = 4
const SlotReservedEnd = 10

// ---- INSTANCE NAME ----

// SlotNameStart is the first slot used for the instance name.
// The name is always placed at the END of the status block.
const SlotNameStart = 11

// SlotNameSlots is the number of slots reserved for the instance name.
const SlotNameSlots = 8

// SlotNameEnd is the last slot used for the instance name (inclusive).
const SlotNameEnd = SlotNameStart + SlotNameSlots - 1

// ---- LIMITS ----

// NameMaxChars is the maximum number of ASCII characters stored for the name.
const NameMaxChars = 16

// MaxSecondsInState is where the seconds counter saturates.
const MaxSecondsInState = 65535

// ---- CODES ----
// Zero is always "unknown / absent".

const (
	CodeUnknown uint16 = 0

	CodeInstanceStarting uint16 = 1
	CodeInstanceRunning  uint16 = 2
	CodeInstanceStopping uint16 = 3
	CodeInstanceStopped  uint16 = 4

	CodeContainerRunning  uint16 = 1
	CodeContainerStopping uint16 = 2
	CodeContainerStopped  uint16 = 3

	CodeHealthHealthy   uint16 = 1
	CodeHealthUnhealthy uint16 = 2
)

// Code returns the register code for s.
func (s InstanceStatus) Code() uint16 {
	switch s {
	case InstanceStarting:
		return CodeInstanceStarting
	case InstanceRunning:
		return CodeInstanceRunning
	case InstanceStopping:
		return CodeInstanceStopping
	case InstanceStopped:
		return CodeInstanceStopped
	}
	return CodeUnknown
}

// Code returns the register code for s.
func (s ContainerStatus) Code() uint16 {
	switch s {
	case ContainerRunning:
		return CodeContainerRunning
	case ContainerStopping:
		return CodeContainerStopping
	case ContainerStopped:
		return CodeContainerStopped
	}
	return CodeUnknown
}

// Code returns the register code for s.
func (s HealthStatus) Code() uint16 {
	switch s {
	case HealthHealthy:
		return CodeHealthHealthy
	case HealthUnhealthy:
		return CodeHealthUnhealthy
	}
	return CodeUnknown
}
