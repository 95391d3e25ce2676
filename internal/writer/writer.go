// internal/writer/writer.go
package writer

import "github.com/tamzrod/statusd/internal/status"

// StatusWriter is the delivery-only contract for instance status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// registerClient is the Modbus write the block writer needs.
type registerClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Target is a named writer, as reported in logs and metrics.
type Target struct {
	Name string
	StatusWriter
}
