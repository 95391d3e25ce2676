// internal/probe/modbus/client.go
package modbus

import (
	"time"

	"github.com/goburrow/modbus"
	"github.com/juju/errors"
)

// TCPClient implements Client over one Modbus TCP connection.
type TCPClient struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Dial connects to endpoint. timeout bounds both the connect and every read.
func Dial(endpoint string, unitID uint8, timeout time.Duration) (*TCPClient, error) {
	if endpoint == "" {
		return nil, errors.NotValidf("empty modbus endpoint")
	}

	h := modbus.NewTCPClientHandler(endpoint)
	h.SlaveId = unitID
	if timeout > 0 {
		h.Timeout = timeout
	}
	if err := h.Connect(); err != nil {
		return nil, errors.Annotatef(err, "connecting to %s", endpoint)
	}

	return &TCPClient{handler: h, client: modbus.NewClient(h)}, nil
}

func (c *TCPClient) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(b), nil
}

func (c *TCPClient) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	b, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(b), nil
}

func (c *TCPClient) Close() error {
	return c.handler.Close()
}

func unpackRegisters(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
