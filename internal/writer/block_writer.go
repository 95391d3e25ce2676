// internal/writer/block_writer.go
package writer

import (
	"fmt"
	"strings"

	"github.com/juju/errors"

	"github.com/tamzrod/statusd/internal/status"
)

// BlockConfig places one instance status block on a Modbus unit.
type BlockConfig struct {
	UnitID   uint8
	BaseSlot uint16
	Name     string
}

// BlockWriter writes the status block into holding registers.
//
// The first write, and the first write after any failure, re-asserts the full
// block including the instance name. Otherwise only changed slots are written.
type BlockWriter struct {
	cfg BlockConfig
	cli registerClient

	needFull bool
	last     status.Snapshot
}

// NewBlockWriter builds a block writer over cli.
func NewBlockWriter(cfg BlockConfig, cli registerClient) (*BlockWriter, error) {
	if cli == nil {
		return nil, errors.NotValidf("nil register client")
	}
	if int(cfg.BaseSlot)*status.SlotsPerInstance+status.SlotsPerInstance > 1<<16 {
		return nil, errors.NotValidf("base slot %d", cfg.BaseSlot)
	}
	return &BlockWriter{cfg: cfg, cli: cli, needFull: true}, nil
}

// WriteStatus delivers a snapshot into status memory.
func (bw *BlockWriter) WriteStatus(s status.Snapshot) error {
	// seconds_in_state saturates, never wraps
	if s.SecondsInState > status.MaxSecondsInState {
		s.SecondsInState = status.MaxSecondsInState
	}

	base := bw.baseAddr()

	if bw.needFull {
		if err := bw.cli.WriteRegisters(bw.cfg.UnitID, base, status.EncodeBlock(s, bw.cfg.Name)); err != nil {
			return errors.Annotate(err, "status block: full write failed")
		}
		bw.needFull = false
		bw.last = s
		return nil
	}

	next := status.Encode(s)
	prev := status.Encode(bw.last)

	var errs []string
	for slot := status.SlotInstanceCode; slot <= status.SlotSecondsInState; slot++ {
		if next[slot] == prev[slot] {
			continue
		}
		if err := bw.cli.WriteRegisters(bw.cfg.UnitID, base+uint16(slot), next[slot:slot+1]); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
		}
	}

	if len(errs) > 0 {
		// partial failure: re-assert everything on the next call
		bw.needFull = true
		return errors.New("status block: " + strings.Join(errs, " | "))
	}

	bw.last = s
	return nil
}

func (bw *BlockWriter) baseAddr() uint16 {
	return bw.cfg.BaseSlot * status.SlotsPerInstance
}
