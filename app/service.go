package app

import (
	"context"
	"fmt"
	"io"

	"github.com/kilianp07/districtopt/config"
	"github.com/kilianp07/districtopt/core/market"
	coremetrics "github.com/kilianp07/districtopt/core/metrics"
	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
	"github.com/kilianp07/districtopt/core/pipeline"
	"github.com/kilianp07/districtopt/core/program"
	"github.com/kilianp07/districtopt/core/results"
	"github.com/kilianp07/districtopt/infra/logger"
	"github.com/kilianp07/districtopt/infra/metrics"
	"github.com/kilianp07/districtopt/infra/profiles"
	"github.com/kilianp07/districtopt/internal/eventbus"
)

// Service wires the configured solver, sinks and profile files around the
// district pipeline.
type Service struct {
	cfg       *config.Config
	solver    program.Solver
	sink      results.Sink
	metrics   coremetrics.MetricsSink
	bus       *eventbus.Bus
	collector <-chan struct{}
	stop      context.CancelFunc
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Setup(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")
	solver, err := program.NewSolver(cfg.Solver.Module())
	if err != nil {
		return nil, fmt.Errorf("solver %s: %w", cfg.Solver.Type, err)
	}
	msink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	rsink, err := results.NewSink(cfg.Results.Sinks)
	if err != nil {
		closeMetrics(msink)
		return nil, fmt.Errorf("result sinks: %w", err)
	}
	// Each district publishes two events.
	bus := eventbus.NewWithBuffer(2*len(cfg.Districts) + eventbus.DefaultBuffer)
	return &Service{cfg: cfg, solver: solver, sink: rsink, metrics: msink, bus: bus, log: logg}, nil
}

// Jobs loads the market prices and the profiles of every district. A district
// whose profiles cannot be loaded becomes a failed job.
func (s *Service) Jobs() (model.Prices, []pipeline.Job, error) {
	h, err := s.cfg.Horizon.Horizon()
	if err != nil {
		return model.Prices{}, nil, err
	}
	provider := profiles.NewProvider(s.cfg.Dir, h, s.cfg.Tariffs, logger.New("profiles"))
	prices, err := provider.Prices(s.cfg.Market)
	if err != nil {
		return model.Prices{}, nil, fmt.Errorf("market prices: %w", err)
	}
	jobs := make([]pipeline.Job, 0, len(s.cfg.Districts))
	for _, d := range s.cfg.Districts {
		dc, dh, err := provider.District(d)
		if err != nil {
			dc.Name = d.Name
		}
		jobs = append(jobs, pipeline.Job{Config: dc, Horizon: dh, Err: err})
	}
	return prices, jobs, nil
}

// Run solves every configured district once and returns the run report.
func (s *Service) Run(ctx context.Context) (pipeline.Report, error) {
	prices, jobs, err := s.Jobs()
	if err != nil {
		return pipeline.Report{}, err
	}
	ctx, s.stop = context.WithCancel(ctx)
	s.collector = metrics.StartEventCollector(ctx, s.bus, s.metrics)
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, port, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	runner := pipeline.NewRunner(s.solver, s.cfg.Solver.Type, prices, logger.New("pipeline"))
	runner.SetWorkers(s.cfg.Pipeline.Workers)
	runner.SetSink(s.sink)
	runner.SetBus(s.bus)
	if tol := s.cfg.Market.Tolerance; tol > 0 {
		runner.SetMarketOptions(market.WithTolerance(tol))
	}
	return runner.Run(ctx, jobs), nil
}

// Problem compiles one district of cfg into its linear program without
// solving it. No sink is opened.
func Problem(cfg *config.Config, name string) (*program.Problem, error) {
	d, ok := cfg.District(name)
	if !ok {
		return nil, fmt.Errorf("unknown district %s", name)
	}
	h, err := cfg.Horizon.Horizon()
	if err != nil {
		return nil, err
	}
	provider := profiles.NewProvider(cfg.Dir, h, cfg.Tariffs, logger.New("profiles"))
	prices, err := provider.Prices(cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("market prices: %w", err)
	}
	dc, dh, err := provider.District(d)
	if err != nil {
		return nil, err
	}
	net, err := network.Compile(dc, dh)
	if err != nil {
		return nil, err
	}
	var opts []market.Option
	if tol := cfg.Market.Tolerance; tol > 0 {
		opts = append(opts, market.WithTolerance(tol))
	}
	ov, err := market.Overlay(net, prices, dh, opts...)
	if err != nil {
		return nil, err
	}
	return program.Build(net, ov)
}

// Close drains pending events into the metrics sinks and releases every sink.
func (s *Service) Close() error {
	s.bus.Close()
	if s.collector != nil {
		<-s.collector
	}
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("%d pipeline events dropped before reaching the metrics sinks", n)
	}
	if s.stop != nil {
		s.stop()
	}
	closeMetrics(s.metrics)
	err := s.sink.Close()
	if cerr := logger.Close(); err == nil {
		err = cerr
	}
	return err
}

func closeMetrics(sink coremetrics.MetricsSink) {
	if c, ok := sink.(io.Closer); ok {
		_ = c.Close()
	}
}
