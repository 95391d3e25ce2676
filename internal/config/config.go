// internal/config/config.go
package config

import (
	"os"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Source   SourceConfig   `yaml:"source"`
	Health   HealthConfig   `yaml:"health"`
	Writers  WritersConfig  `yaml:"writers"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ---- INSTANCE ----

type InstanceConfig struct {
	// Name identifies the instance in logs, events and the status block.
	Name string `yaml:"name"`
}

// ---- CONTAINER STATUS SOURCE ----

const (
	SourceDocker = "docker"
	SourceFile   = "file"
)

type SourceConfig struct {
	Type   string        `yaml:"type"`
	Docker *DockerSource `yaml:"docker"`
	File   *FileSource   `yaml:"file"`
}

type DockerSource struct {
	Container  string `yaml:"container"`
	Socket     string `yaml:"socket"`
	IntervalMs int    `yaml:"interval_ms"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

type FileSource struct {
	Path string `yaml:"path"`
}

// ---- HEALTH POLL ----

const (
	ProbeHTTP   = "http"
	ProbeTCP    = "tcp"
	ProbeModbus = "modbus"
)

type HealthConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	TimeoutMs  int `yaml:"timeout_ms"`
	// WarmupTimeoutMs: 0 disables the warm-up bound.
	WarmupTimeoutMs int         `yaml:"warmup_timeout_ms"`
	Probe           ProbeConfig `yaml:"probe"`
}

type ProbeConfig struct {
	Type   string       `yaml:"type"`
	URL    string       `yaml:"url"`      // http
	Target string       `yaml:"endpoint"` // tcp
	Modbus *ModbusProbe `yaml:"modbus"`
}

type ModbusProbe struct {
	Endpoint string  `yaml:"endpoint"`
	UnitID   uint8   `yaml:"unit_id"`
	FC       uint8   `yaml:"fc"`
	Address  uint16  `yaml:"address"`
	Quantity uint16  `yaml:"quantity"`
	Expect   *uint16 `yaml:"expect"`
}

// ---- STATUS WRITERS ----

type WritersConfig struct {
	Modbus []ModbusWriter `yaml:"modbus"`
	NATS   *NATSWriter    `yaml:"nats"`
}

// ModbusWriter places the status block at BaseSlot*20 on one endpoint/unit.
type ModbusWriter struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	BaseSlot  uint16 `yaml:"base_slot"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type NATSWriter struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ---- AMBIENT ----

type MetricsConfig struct {
	// Listen is the address of the /metrics endpoint; empty disables it.
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads, validates and normalizes a YAML configuration file.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "reading config %q", path)
	}
	return Parse(b)
}

// Parse is Load without the file. ${VAR} references are expanded from the
// environment before decoding.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(b))))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Annotate(err, "decoding config")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Trace(err)
	}
	Normalize(&cfg)
	return &cfg, nil
}
