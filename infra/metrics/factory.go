package metrics

import (
	"fmt"

	"github.com/kilianp07/districtopt/core/factory"
	coremetrics "github.com/kilianp07/districtopt/core/metrics"
	"github.com/kilianp07/districtopt/core/results"
)

// init registers built-in metrics and result sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSink()
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if s := NewInfluxSinkWithFallback(c); s != nil {
			return s, nil
		}
		return coremetrics.NopSink{}, nil
	})

	_ = results.RegisterSink("influx", func(conf map[string]any) (results.Sink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		s := NewInfluxSinkWithFallback(c)
		if s == nil {
			return nil, fmt.Errorf("influx at %s is not healthy", c.URL)
		}
		return s, nil
	})
}
