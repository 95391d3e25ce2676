// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"

	"github.com/juju/errors"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.NotValidf("nil config")
	}

	// instance name is written as ASCII into the status block
	if cfg.Instance.Name == "" {
		return errors.NotValidf("empty instance.name")
	}
	for i := 0; i < len(cfg.Instance.Name); i++ {
		if cfg.Instance.Name[i] > 0x7F {
			return errors.NotValidf("instance.name %q with non-ASCII characters", cfg.Instance.Name)
		}
	}

	if err := validateSource(cfg.Source); err != nil {
		return errors.Trace(err)
	}
	if err := validateHealth(cfg.Health); err != nil {
		return errors.Trace(err)
	}
	if err := validateWriters(cfg.Writers); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func validateSource(s SourceConfig) error {
	switch s.Type {
	case SourceDocker:
		if s.Docker == nil || s.Docker.Container == "" {
			return errors.NotValidf("docker source without source.docker.container")
		}
		if s.Docker.IntervalMs < 0 || s.Docker.TimeoutMs < 0 {
			return errors.NotValidf("negative source.docker interval or timeout")
		}
	case SourceFile:
		if s.File == nil || s.File.Path == "" {
			return errors.NotValidf("file source without source.file.path")
		}
	default:
		return errors.NotValidf("source.type %q", s.Type)
	}
	return nil
}

func validateHealth(h HealthConfig) error {
	if h.IntervalMs < 0 || h.TimeoutMs < 0 || h.WarmupTimeoutMs < 0 {
		return errors.NotValidf("negative health interval or timeout")
	}

	p := h.Probe
	switch p.Type {
	case ProbeHTTP:
		u, err := url.Parse(p.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.NotValidf("health.probe.url %q", p.URL)
		}
	case ProbeTCP:
		if p.Target == "" {
			return errors.NotValidf("tcp probe without health.probe.endpoint")
		}
	case ProbeModbus:
		if p.Modbus == nil || p.Modbus.Endpoint == "" {
			return errors.NotValidf("modbus probe without health.probe.modbus.endpoint")
		}
		switch p.Modbus.FC {
		case 0, 3, 4:
		default:
			return errors.NotValidf("health.probe.modbus.fc %d (only 3 and 4 are readable registers)", p.Modbus.FC)
		}
		if p.Modbus.Quantity > 125 {
			return errors.NotValidf("health.probe.modbus.quantity %d", p.Modbus.Quantity)
		}
	default:
		return errors.NotValidf("health.probe.type %q", p.Type)
	}
	return nil
}

func validateWriters(w WritersConfig) error {
	// key = endpoint | unit_id | base_slot
	owner := make(map[string]int)

	for i, m := range w.Modbus {
		if m.Endpoint == "" {
			return errors.NotValidf("writers.modbus[%d] without endpoint", i)
		}
		if m.TimeoutMs < 0 {
			return errors.NotValidf("negative writers.modbus[%d].timeout_ms", i)
		}

		key := fmt.Sprintf("%s|%d|%d", m.Endpoint, m.UnitID, m.BaseSlot)
		if prev, exists := owner[key]; exists {
			return errors.NotValidf(
				"status block collision: endpoint=%s unit_id=%d base_slot=%d used by writers %d and %d",
				m.Endpoint, m.UnitID, m.BaseSlot, prev, i,
			)
		}
		owner[key] = i
	}

	if w.NATS != nil && w.NATS.URL == "" {
		return errors.NotValidf("writers.nats without url")
	}
	return nil
}
