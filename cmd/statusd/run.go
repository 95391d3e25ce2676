// cmd/statusd/run.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tamzrod/statusd/internal/healthpoll"
	"github.com/tamzrod/statusd/internal/instance"
	"github.com/tamzrod/statusd/internal/metrics"
	"github.com/tamzrod/statusd/internal/publisher"
	"github.com/tamzrod/statusd/internal/writer"
)

// RunCmd implements the 'run' command.
type RunCmd struct{}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return errors.Annotate(err, "load config")
	}
	log := g.Logger.With("instance", cfg.Instance.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --------------------
	// Metrics
	// --------------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewPrometheusRecorder(reg)

	// --------------------
	// Health poll loop (owned by the tracker)
	// --------------------

	probe, closeProbe, err := buildProbe(cfg.Health)
	if err != nil {
		return errors.Annotate(err, "build probe")
	}
	defer func() { _ = closeProbe() }()

	loop := healthpoll.New(probe,
		healthpoll.WithInterval(cfg.Health.Interval()),
		healthpoll.WithTimeout(cfg.Health.Timeout()),
		healthpoll.WithLogger(log),
		healthpoll.WithMetrics(rec),
	)

	// --------------------
	// Container status source + tracker
	// --------------------

	src, err := buildSource(cfg.Source, log)
	if err != nil {
		_ = loop.Close()
		return errors.Annotate(err, "build source")
	}
	defer func() { _ = src.Close() }()

	tracker, err := instance.New(instance.Config{
		Source:        src,
		Health:        loop,
		WarmupTimeout: cfg.Health.WarmupTimeout(),
		Logger:        log,
	})
	if err != nil {
		_ = loop.Close()
		return errors.Annotate(err, "build tracker")
	}
	defer func() { _ = tracker.Close() }()

	// --------------------
	// Writers + publisher
	// --------------------

	targets, closeWriters, err := writer.Build(cfg.Writers, cfg.Instance.Name, log)
	if err != nil {
		return errors.Annotate(err, "build writers")
	}
	defer func() { _ = closeWriters() }()

	pub, err := publisher.New(publisher.Config{
		Tracker: tracker,
		Targets: targets,
		Logger:  log,
		Metrics: rec,
	})
	if err != nil {
		return errors.Annotate(err, "build publisher")
	}

	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, reg, g)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Infow("statusd started",
		"source", cfg.Source.Type,
		"probe", cfg.Health.Probe.Type,
		"writers", len(targets))

	if err := pub.Run(ctx); err != nil {
		return errors.Trace(err)
	}

	log.Infow("shutdown signal received, stopping", "status", tracker.Status())
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, g *Global) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.Logger.Errorw("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
