package metrics

import (
	"fmt"
	"io"

	"github.com/kilianp07/districtopt/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// MetricsSinks lists the registered sink types.
func MetricsSinks() []string { return sinkRegistry.Names() }

// NewMetricsSink creates a MetricsSink from the provided configuration. Sinks
// created before a failing one are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	sinks := make([]MetricsSink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			for _, prev := range sinks {
				if cl, ok := prev.(io.Closer); ok {
					_ = cl.Close()
				}
			}
			return nil, fmt.Errorf("metrics sink %s: %w", c.Type, err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
