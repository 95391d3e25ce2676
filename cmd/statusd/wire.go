// cmd/statusd/wire.go
package main

import (
	"net/http"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/config"
	"github.com/tamzrod/statusd/internal/healthpoll"
	"github.com/tamzrod/statusd/internal/logger"
	"github.com/tamzrod/statusd/internal/probe"
	pmodbus "github.com/tamzrod/statusd/internal/probe/modbus"
	"github.com/tamzrod/statusd/internal/source"
	"github.com/tamzrod/statusd/internal/source/docker"
	"github.com/tamzrod/statusd/internal/source/file"
)

// loadConfig loads the config file and applies its log level unless the flag set one.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if root.LogLevel == "" {
		lvl, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, errors.Trace(err)
		}
		g.Level.SetLevel(lvl)
	}
	return cfg, nil
}

// buildProbe returns the configured probe and a closer for its connection.
func buildProbe(h config.HealthConfig) (healthpoll.Probe, func() error, error) {
	noop := func() error { return nil }

	switch h.Probe.Type {
	case config.ProbeHTTP:
		return probe.HTTP(h.Probe.URL, &http.Client{Timeout: h.Timeout()}), noop, nil

	case config.ProbeTCP:
		return probe.TCP(h.Probe.Target), noop, nil

	case config.ProbeModbus:
		m := h.Probe.Modbus
		p, err := pmodbus.New(pmodbus.Config{
			Endpoint: m.Endpoint,
			UnitID:   m.UnitID,
			Timeout:  h.Timeout(),
			FC:       m.FC,
			Address:  m.Address,
			Quantity: m.Quantity,
			Expect:   m.Expect,
		}, nil)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return p.Probe, p.Close, nil
	}
	return nil, nil, errors.NotValidf("probe type %q", h.Probe.Type)
}

// buildSource starts the configured container status source.
func buildSource(s config.SourceConfig, log *zap.SugaredLogger) (source.Source, error) {
	switch s.Type {
	case config.SourceDocker:
		src, err := docker.New(docker.Config{
			Container: s.Docker.Container,
			Socket:    s.Docker.Socket,
			Interval:  s.Docker.Interval(),
			Timeout:   s.Docker.Timeout(),
		}, docker.WithLogger(log))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return src, nil

	case config.SourceFile:
		src, err := file.New(s.File.Path, file.WithLogger(log))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return src, nil
	}
	return nil, errors.NotValidf("source type %q", s.Type)
}
