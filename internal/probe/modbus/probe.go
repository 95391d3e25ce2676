// internal/probe/modbus/probe.go
package modbus

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/juju/errors"
)

const (
	FCHoldingRegisters uint8 = 3
	FCInputRegisters   uint8 = 4
)

// Client is the subset of Modbus reads the probe needs.
type Client interface {
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error)
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)
	Close() error
}

// Factory opens a new client. It is called once per probe while disconnected.
type Factory func() (Client, error)

// Config describes the register window read by the probe.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration

	FC       uint8 // 3 or 4, default 3
	Address  uint16
	Quantity uint16 // default 1

	// Expect, when set, must equal the first register read.
	Expect *uint16
}

func (c Config) Validate() error {
	switch c.FC {
	case 0, FCHoldingRegisters, FCInputRegisters:
	default:
		return errors.NotValidf("function code %d", c.FC)
	}
	if c.Quantity > 125 {
		return errors.NotValidf("quantity %d", c.Quantity)
	}
	return nil
}

// Prober reads a register window and reports whether the device answered.
//
// The connection is reused while reads succeed. A transport failure discards it
// and the next probe dials again. A Modbus exception means the device is up but
// refused the read: unhealthy, connection kept.
type Prober struct {
	cfg     Config
	factory Factory

	mu     sync.Mutex
	client Client
}

// New builds a prober. A nil factory dials cfg.Endpoint over TCP.
func New(cfg Config, factory Factory) (*Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.FC == 0 {
		cfg.FC = FCHoldingRegisters
	}
	if cfg.Quantity == 0 {
		cfg.Quantity = 1
	}
	if factory == nil {
		if cfg.Endpoint == "" {
			return nil, errors.NotValidf("empty modbus endpoint")
		}
		factory = func() (Client, error) {
			return Dial(cfg.Endpoint, cfg.UnitID, cfg.Timeout)
		}
	}
	return &Prober{cfg: cfg, factory: factory}, nil
}

// Probe performs one read. The read deadline is the client timeout; ctx is
// only checked before I/O starts.
func (p *Prober) Probe(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, errors.Trace(err)
	}

	if p.client == nil {
		c, err := p.factory()
		if err != nil {
			return false, errors.Trace(err)
		}
		p.client = c
	}

	regs, err := p.read()
	if err != nil {
		var mbErr *modbus.ModbusError
		if !stderrors.As(err, &mbErr) {
			_ = p.client.Close()
			p.client = nil
		}
		return false, errors.Annotatef(err, "reading fc%d %d+%d", p.cfg.FC, p.cfg.Address, p.cfg.Quantity)
	}

	if p.cfg.Expect != nil {
		if len(regs) == 0 || regs[0] != *p.cfg.Expect {
			return false, nil
		}
	}
	return true, nil
}

// Close drops the connection, if any.
func (p *Prober) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return errors.Trace(err)
}

func (p *Prober) read() ([]uint16, error) {
	if p.cfg.FC == FCInputRegisters {
		return p.client.ReadInputRegisters(p.cfg.Address, p.cfg.Quantity)
	}
	return p.client.ReadHoldingRegisters(p.cfg.Address, p.cfg.Quantity)
}
