// Package results defines where district KPIs go once a run has solved them.
package results

import (
	"context"
	"errors"

	"github.com/kilianp07/districtopt/core/factory"
	"github.com/kilianp07/districtopt/core/kpi"
)

// Record is the output of one solved district.
type Record struct {
	RunID   string
	Summary kpi.Summary
	Flows   kpi.FlowTable
}

// Sink persists or publishes district records.
type Sink interface {
	Write(ctx context.Context, r Record) error
	Close() error
}

var registry = factory.NewRegistry[Sink]()

// RegisterSink adds a result sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return registry.Register(name, f)
}

// NewSink creates the configured sinks combined into one.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	sinks := make(Multi, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := registry.Create(c)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// Sinks returns the registered sink names.
func Sinks() []string { return registry.Names() }

// Multi writes every record to all its sinks. A failing sink does not stop
// the others; the errors are joined.
type Multi []Sink

func (m Multi) Write(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
