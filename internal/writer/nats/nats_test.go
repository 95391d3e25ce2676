// internal/writer/nats/nats_test.go
package nats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/statusd/internal/status"
)

type fakePublisher struct {
	subject string
	msgs    [][]byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subject = subject
	f.msgs = append(f.msgs, data)
	return nil
}

func TestWriteStatus(t *testing.T) {
	pub := &fakePublisher{}
	w := New(pub, "statusd.plc-gateway", "plc-gateway")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	require.NoError(t, w.WriteStatus(status.Snapshot{
		Instance:       status.InstanceStarting,
		Container:      status.ContainerRunning,
		SecondsInState: 4,
	}))
	require.NoError(t, w.WriteStatus(status.Snapshot{Instance: status.InstanceRunning}))

	assert.Equal(t, "statusd.plc-gateway", pub.subject)
	require.Len(t, pub.msgs, 2)

	var ev Event
	require.NoError(t, json.Unmarshal(pub.msgs[0], &ev))
	assert.Equal(t, "plc-gateway", ev.Instance)
	assert.Equal(t, "starting", ev.Status)
	assert.Equal(t, "running", ev.Container)
	assert.Equal(t, "unknown", ev.Health)
	assert.Equal(t, uint16(4), ev.SecondsInState)
	assert.True(t, at.Equal(ev.Timestamp))
	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err)

	var second Event
	require.NoError(t, json.Unmarshal(pub.msgs[1], &second))
	assert.NotEqual(t, ev.ID, second.ID, "every event has its own id")
}

func TestWriteStatus_PublishError(t *testing.T) {
	w := New(&fakePublisher{err: errors.New("nats: connection closed")}, "s", "i")
	assert.Error(t, w.WriteStatus(status.Snapshot{}))
}
