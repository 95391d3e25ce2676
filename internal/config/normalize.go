// internal/config/normalize.go
package config

import "github.com/tamzrod/statusd/internal/status"

const (
	DefaultIntervalMs     = 1000
	DefaultProbeTimeoutMs = 800
	DefaultWriterTimeout  = 1000
	DefaultDockerSocket   = "/var/run/docker.sock"
	DefaultLogLevel       = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ASCII already validated; the status block holds 16 characters.
	if len(cfg.Instance.Name) > status.NameMaxChars {
		cfg.Instance.Name = cfg.Instance.Name[:status.NameMaxChars]
	}

	if d := cfg.Source.Docker; d != nil {
		if d.Socket == "" {
			d.Socket = DefaultDockerSocket
		}
		if d.IntervalMs == 0 {
			d.IntervalMs = DefaultIntervalMs
		}
		if d.TimeoutMs == 0 {
			d.TimeoutMs = DefaultProbeTimeoutMs
		}
	}

	if cfg.Health.IntervalMs == 0 {
		cfg.Health.IntervalMs = DefaultIntervalMs
	}
	if cfg.Health.TimeoutMs == 0 {
		cfg.Health.TimeoutMs = DefaultProbeTimeoutMs
	}
	if m := cfg.Health.Probe.Modbus; m != nil {
		if m.FC == 0 {
			m.FC = 3
		}
		if m.Quantity == 0 {
			m.Quantity = 1
		}
	}

	for i := range cfg.Writers.Modbus {
		if cfg.Writers.Modbus[i].TimeoutMs == 0 {
			cfg.Writers.Modbus[i].TimeoutMs = DefaultWriterTimeout
		}
	}
	if n := cfg.Writers.NATS; n != nil && n.Subject == "" {
		n.Subject = "statusd." + cfg.Instance.Name
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
