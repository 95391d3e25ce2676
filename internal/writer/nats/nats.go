// internal/writer/nats/nats.go
package nats

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/status"
)

// Event is the JSON document published for every delivered snapshot.
type Event struct {
	ID             string    `json:"id"`
	Instance       string    `json:"instance"`
	Status         string    `json:"status"`
	Container      string    `json:"container"`
	Health         string    `json:"health"`
	SecondsInState uint16    `json:"seconds_in_state"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher is the subset of *nats.Conn the writer uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Writer publishes status snapshots as events on one subject.
type Writer struct {
	pub      Publisher
	subject  string
	instance string
	now      func() time.Time
}

// New builds a writer over an existing connection.
func New(pub Publisher, subject, instance string) *Writer {
	return &Writer{pub: pub, subject: subject, instance: instance, now: time.Now}
}

// Connect dials url and returns a writer plus a closer for the connection.
// The client keeps reconnecting in the background; publishes made while
// disconnected are buffered by the client library.
func Connect(url, subject, instance string, log *zap.SugaredLogger) (*Writer, func() error, error) {
	conn, err := nats.Connect(url,
		nats.Name("statusd-"+instance),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if log != nil && err != nil {
				log.Warnw("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if log != nil {
				log.Infow("nats reconnected", "url", c.ConnectedUrl())
			}
		}),
	)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "connecting to nats %s", url)
	}

	closer := func() error {
		if err := conn.Drain(); err != nil {
			conn.Close()
			return errors.Trace(err)
		}
		return nil
	}
	return New(conn, subject, instance), closer, nil
}

func (w *Writer) WriteStatus(s status.Snapshot) error {
	ev := Event{
		ID:             uuid.NewString(),
		Instance:       w.instance,
		Status:         s.Instance.String(),
		Container:      s.Container.String(),
		Health:         s.Health.String(),
		SecondsInState: s.SecondsInState,
		Timestamp:      w.now().UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Annotate(err, "marshal status event")
	}
	if err := w.pub.Publish(w.subject, data); err != nil {
		return errors.Annotatef(err, "publish to %s", w.subject)
	}
	return nil
}
