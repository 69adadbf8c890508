package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/districtopt/core/metrics"
)

// PromSink records solve events in Prometheus metrics.
type PromSink struct {
	solves    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	objective *prometheus.GaugeVec
	size      *prometheus.GaugeVec
	failed    prometheus.Gauge
}

// NewPromSink registers solver metrics on the default Prometheus registerer.
// The Prometheus server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "districtopt_solves_total",
		Help: "Number of district solves by outcome",
	}, []string{"district", "solver", "status"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "districtopt_solve_duration_seconds",
		Help:    "Wall time spent in the solver",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"solver"}))
	if err != nil {
		return nil, err
	}
	objective, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "districtopt_objective",
		Help: "Objective value of the last optimal solve",
	}, []string{"district"}))
	if err != nil {
		return nil, err
	}
	size, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "districtopt_problem_size",
		Help: "Variables and rows of the last solved program",
	}, []string{"district", "kind"}))
	if err != nil {
		return nil, err
	}
	failed, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "districtopt_run_failed_districts",
		Help: "Districts that failed in the last run",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{solves: solves, duration: duration, objective: objective, size: size, failed: failed}, nil
}

// register returns the already registered collector when an identical one
// exists, so several sinks can share a registerer.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve updates the counters, the duration histogram and, for optimal
// solves, the objective gauge.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.District, ev.Solver, ev.Status).Inc()
	s.duration.WithLabelValues(ev.Solver).Observe(ev.Duration.Seconds())
	s.size.WithLabelValues(ev.District, "vars").Set(float64(ev.Vars))
	s.size.WithLabelValues(ev.District, "rows").Set(float64(ev.Rows))
	if ev.Status == "optimal" {
		s.objective.WithLabelValues(ev.District).Set(ev.Objective)
	}
	return nil
}

// RecordRun sets the failed district gauge.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.failed.Set(float64(ev.Failed))
	return nil
}
