// cmd/statusd/probe.go
package main

import (
	"context"
	"fmt"

	"github.com/juju/errors"

	"github.com/tamzrod/statusd/internal/status"
)

// ProbeCmd implements the 'probe' command: one health probe, no tracking.
type ProbeCmd struct{}

func (p *ProbeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return errors.Annotate(err, "load config")
	}

	probe, closeProbe, err := buildProbe(cfg.Health)
	if err != nil {
		return errors.Annotate(err, "build probe")
	}
	defer func() { _ = closeProbe() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Health.Timeout())
	defer cancel()

	h := status.HealthUnhealthy
	ok, err := probe(ctx)
	if err == nil && ok {
		h = status.HealthHealthy
	}
	fmt.Println(h)

	if h != status.HealthHealthy {
		if err != nil {
			return errors.Annotatef(err, "%s is %s", cfg.Instance.Name, h)
		}
		return errors.Errorf("%s is %s", cfg.Instance.Name, h)
	}
	return nil
}
