package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"

	"github.com/IvanBrykalov/cachesim/metrics/prom"
	"github.com/IvanBrykalov/cachesim/sim"
)

func run(ctx context.Context, p *runParams, out io.Writer) error {
	e := p.experiment
	if p.configFile != "" {
		file, err := loadExperiment(p.configFile)
		if err != nil {
			return err
		}
		e = e.merge(file)
	}
	e = e.withDefaults()

	jobs, err := e.jobs()
	if err != nil {
		return err
	}
	open, err := e.opener()
	if err != nil {
		return err
	}

	opt := sim.SweepOptions{
		Workers:    e.Workers,
		Overhead:   e.Overhead,
		DefaultTTL: e.TTL,
		Seed:       e.Seed,
		Warmup:     e.Warmup,
		Preload:    e.Preload,
		Logger:     logger,
	}
	if p.httpAddr != "" {
		metrics, shutdown, err := serveMetrics(p.httpAddr)
		if err != nil {
			return err
		}
		defer shutdown()
		opt.Metrics = metrics.For
	}

	level.Info(logger).Log("msg", "starting sweep", "jobs", len(jobs), "format", e.Format, "trace", e.Trace, "version", version.Version)
	results, err := sim.Sweep(ctx, open, jobs, opt)
	if err != nil {
		return err
	}
	renderResults(out, results)
	renderBest(out, results)
	return nil
}

// serveMetrics exposes a fresh registry on addr until shutdown is called.
func serveMetrics(addr string) (*prom.Adapter, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	adapter := prom.New(reg, "cachesim", "")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "metrics listener")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "metrics server", "err", err)
		}
	}()
	level.Info(logger).Log("msg", "serving metrics", "addr", ln.Addr().String())

	return adapter, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
