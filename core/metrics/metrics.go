package metrics

import (
	"errors"
	"io"
	"time"
)

// SolveEvent describes one district solve.
type SolveEvent struct {
	RunID     string
	District  string
	Solver    string
	Status    string
	Objective float64
	Vars      int
	Rows      int
	Duration  time.Duration
	Time      time.Time
}

// MetricsSink records solve events for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// RunEvent summarises a run over all districts.
type RunEvent struct {
	RunID     string
	Districts int
	Failed    int
	Duration  time.Duration
	Time      time.Time
}

// RunRecorder records finished runs.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error { return nil }
func (NopSink) RecordRun(RunEvent) error     { return nil }

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards run events to sinks that support them.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(RunRecorder); ok {
			if err := r.RecordRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
