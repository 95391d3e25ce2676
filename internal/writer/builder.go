// internal/writer/builder.go
package writer

import (
	"fmt"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/config"
	"github.com/tamzrod/statusd/internal/logger"
	wmodbus "github.com/tamzrod/statusd/internal/writer/modbus"
	wnats "github.com/tamzrod/statusd/internal/writer/nats"
)

// Build creates every configured status writer.
// Modbus writers sharing an endpoint share one TCP client.
// The returned closer releases all connections.
func Build(cfg config.WritersConfig, instance string, log *zap.SugaredLogger) ([]Target, func() error, error) {
	log = logger.For(log, logger.ComponentWriter)
	var (
		targets []Target
		closers []func() error
	)
	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	clients := make(map[string]*wmodbus.EndpointClient)
	for _, m := range cfg.Modbus {
		cli := clients[m.Endpoint]
		if cli == nil {
			c, err := wmodbus.NewEndpointClient(wmodbus.Config{
				Endpoint: m.Endpoint,
				Timeout:  m.Timeout(),
			})
			if err != nil {
				_ = closeAll()
				return nil, nil, errors.Trace(err)
			}
			clients[m.Endpoint] = c
			closers = append(closers, c.Close)
			cli = c
		}

		bw, err := NewBlockWriter(BlockConfig{UnitID: m.UnitID, BaseSlot: m.BaseSlot, Name: instance}, cli)
		if err != nil {
			_ = closeAll()
			return nil, nil, errors.Trace(err)
		}
		targets = append(targets, Target{
			Name:         fmt.Sprintf("modbus:%s/%d/%d", m.Endpoint, m.UnitID, m.BaseSlot),
			StatusWriter: bw,
		})
	}

	if n := cfg.NATS; n != nil {
		w, closeConn, err := wnats.Connect(n.URL, n.Subject, instance, log)
		if err != nil {
			_ = closeAll()
			return nil, nil, errors.Trace(err)
		}
		closers = append(closers, closeConn)
		targets = append(targets, Target{Name: "nats:" + n.Subject, StatusWriter: w})
	}

	for _, t := range targets {
		log.Debugw("status writer configured", "target", t.Name)
	}

	return targets, closeAll, nil
}
