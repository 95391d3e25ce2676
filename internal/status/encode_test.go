// internal/status/encode_test.go
package status

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_LiveSlots(t *testing.T) {
	regs := Encode(Snapshot{
		Instance:       InstanceStopping,
		Container:      ContainerRunning,
		Health:         HealthUnhealthy,
		SecondsInState: 7,
	})

	require.Len(t, regs, SlotsPerInstance)
	assert.Equal(t, CodeInstanceStopping, regs[SlotInstanceCode])
	assert.Equal(t, CodeContainerRunning, regs[SlotContainerCode])
	assert.Equal(t, CodeHealthUnhealthy, regs[SlotHealthCode])
	assert.Equal(t, uint16(7), regs[SlotSecondsInState])

	for i := SlotReservedStart; i <= SlotReservedEnd; i++ {
		assert.Zerof(t, regs[i], "reserved slot %d", i)
	}
}

func TestEncode_AbsentIsUnknown(t *testing.T) {
	regs := Encode(Snapshot{})
	assert.Equal(t, CodeUnknown, regs[SlotInstanceCode])
	assert.Equal(t, CodeUnknown, regs[SlotContainerCode])
	assert.Equal(t, CodeUnknown, regs[SlotHealthCode])
}

func TestEncodeName(t *testing.T) {
	regs := EncodeName("AB\x01")
	require.Len(t, regs, SlotNameSlots)
	assert.Equal(t, uint16('A')<<8|uint16('B'), regs[0])
	assert.Equal(t, uint16('?')<<8, regs[1])
	assert.Zero(t, regs[2])

	long := EncodeName("0123456789abcdefXYZ")
	assert.Equal(t, uint16('e')<<8|uint16('f'), long[7], "name truncated to 16 chars")
}

func TestEncodeBlock_PlacesNameAtEnd(t *testing.T) {
	regs := EncodeBlock(Snapshot{Instance: InstanceRunning}, "db")
	assert.Equal(t, CodeInstanceRunning, regs[SlotInstanceCode])
	assert.Equal(t, uint16('d')<<8|uint16('b'), regs[SlotNameStart])
	assert.Zero(t, regs[SlotNameEnd])
}

func TestParseContainerStatus(t *testing.T) {
	for in, want := range map[string]ContainerStatus{
		"running":      ContainerRunning,
		" Stopping\n":  ContainerStopping,
		"STOPPED":      ContainerStopped,
		"":             ContainerAbsent,
	} {
		got, err := ParseContainerStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseContainerStatus("paused")
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestString_AbsentRendersUnknown(t *testing.T) {
	assert.Equal(t, "unknown", InstanceAbsent.String())
	assert.Equal(t, "unknown", HealthAbsent.String())
	assert.Equal(t, "running", ContainerRunning.String())
}
