// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to build a minimal valid config quickly
func minimal() *Config {
	return &Config{
		Instance: InstanceConfig{Name: "plc-gateway"},
		Source: SourceConfig{
			Type:   SourceDocker,
			Docker: &DockerSource{Container: "plc-gateway"},
		},
		Health: HealthConfig{
			Probe: ProbeConfig{Type: ProbeTCP, Target: "127.0.0.1:502"},
		},
	}
}

func modbusWriter(endpoint string, unitID uint8, slot uint16) ModbusWriter {
	return ModbusWriter{Endpoint: endpoint, UnitID: unitID, BaseSlot: slot}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	require.NoError(t, Validate(minimal()))
}

func TestValidate_Rejects(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"empty name":        func(c *Config) { c.Instance.Name = "" },
		"non-ascii name":    func(c *Config) { c.Instance.Name = "pümpe" },
		"unknown source":    func(c *Config) { c.Source.Type = "k8s" },
		"docker no name":    func(c *Config) { c.Source.Docker.Container = "" },
		"file no path":      func(c *Config) { c.Source = SourceConfig{Type: SourceFile, File: &FileSource{}} },
		"negative interval": func(c *Config) { c.Health.IntervalMs = -1 },
		"unknown probe":     func(c *Config) { c.Health.Probe.Type = "icmp" },
		"tcp no endpoint":   func(c *Config) { c.Health.Probe.Target = "" },
		"http bad url":      func(c *Config) { c.Health.Probe = ProbeConfig{Type: ProbeHTTP, URL: "localhost:8080"} },
		"modbus no block":   func(c *Config) { c.Health.Probe = ProbeConfig{Type: ProbeModbus} },
		"modbus coils": func(c *Config) {
			c.Health.Probe = ProbeConfig{Type: ProbeModbus, Modbus: &ModbusProbe{Endpoint: "x:502", FC: 1}}
		},
		"nats no url": func(c *Config) { c.Writers.NATS = &NATSWriter{Subject: "s"} },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := minimal()
			mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
		})
	}
}

func TestValidate_StatusBlockNoCollisionDifferentSlot(t *testing.T) {
	cfg := minimal()
	cfg.Writers.Modbus = []ModbusWriter{
		modbusWriter("ep1", 1, 0),
		modbusWriter("ep1", 1, 1),
		modbusWriter("ep1", 2, 0),
		modbusWriter("ep2", 1, 0),
	}

	require.NoError(t, Validate(cfg))
}

func TestValidate_StatusBlockCollision(t *testing.T) {
	cfg := minimal()
	cfg.Writers.Modbus = []ModbusWriter{
		modbusWriter("ep1", 1, 3),
		modbusWriter("ep1", 1, 3),
	}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision")
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := minimal()
	cfg.Instance.Name = strings.Repeat("x", 40)
	require.NoError(t, Validate(cfg))
	assert.Len(t, cfg.Instance.Name, 40)
	assert.Zero(t, cfg.Health.IntervalMs)
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := minimal()
	cfg.Instance.Name = "a-very-long-instance-name"
	cfg.Health.Probe = ProbeConfig{Type: ProbeModbus, Modbus: &ModbusProbe{Endpoint: "plc:502"}}
	cfg.Writers.Modbus = []ModbusWriter{modbusWriter("ep1", 1, 0)}
	cfg.Writers.NATS = &NATSWriter{URL: "nats://127.0.0.1:4222"}

	Normalize(cfg)

	assert.Equal(t, "a-very-long-inst", cfg.Instance.Name)
	assert.Equal(t, DefaultDockerSocket, cfg.Source.Docker.Socket)
	assert.Equal(t, 1000, cfg.Source.Docker.IntervalMs)
	assert.Equal(t, 1000, cfg.Health.IntervalMs)
	assert.Equal(t, 800, cfg.Health.TimeoutMs)
	assert.Zero(t, cfg.Health.WarmupTimeoutMs)
	assert.Equal(t, uint8(3), cfg.Health.Probe.Modbus.FC)
	assert.Equal(t, uint16(1), cfg.Health.Probe.Modbus.Quantity)
	assert.Equal(t, DefaultWriterTimeout, cfg.Writers.Modbus[0].TimeoutMs)
	assert.Equal(t, "statusd.a-very-long-inst", cfg.Writers.NATS.Subject)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNormalize_Nil(t *testing.T) {
	assert.NotPanics(t, func() { Normalize(nil) })
}

const sampleYAML = `
instance:
  name: plc-gateway
source:
  type: file
  file:
    path: /run/statusd/plc-gateway
health:
  interval_ms: 500
  warmup_timeout_ms: 30000
  probe:
    type: http
    url: http://127.0.0.1:8080/healthz
writers:
  modbus:
    - endpoint: 127.0.0.1:1502
      unit_id: 1
      base_slot: 2
metrics:
  listen: ":9108"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SourceFile, cfg.Source.Type)
	assert.Equal(t, "/run/statusd/plc-gateway", cfg.Source.File.Path)
	assert.Equal(t, 500, cfg.Health.IntervalMs)
	assert.Equal(t, 800, cfg.Health.TimeoutMs)
	assert.Equal(t, "30s", cfg.Health.WarmupTimeout().String())
	require.Len(t, cfg.Writers.Modbus, 1)
	assert.Equal(t, uint16(2), cfg.Writers.Modbus[0].BaseSlot)
	assert.Equal(t, ":9108", cfg.Metrics.Listen)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Parse([]byte(sampleYAML + "bogus: true\n"))
	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("STATUSD_TEST_NATS", "nats://bus:4222")
	doc := strings.Replace(sampleYAML, "writers:\n", "writers:\n  nats:\n    url: ${STATUSD_TEST_NATS}\n", 1)
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, cfg.Writers.NATS)
	assert.Equal(t, "nats://bus:4222", cfg.Writers.NATS.URL)
}
