package metrics

import "github.com/kilianp07/districtopt/core/factory"

// Config defines settings for metrics sinks. PrometheusPort, when set,
// exposes /metrics for the duration of a run.
type Config struct {
	PrometheusPort string                 `json:"prometheus_port"`
	Sinks          []factory.ModuleConfig `json:"sinks"`
}
