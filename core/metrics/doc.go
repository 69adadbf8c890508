// Package metrics defines the interfaces for recording solver and run
// metrics. Sinks like PromSink and InfluxSink record solve events and can be
// combined with NewMultiSink. The factory helpers return a MultiSink
// automatically when multiple sinks are configured.
package metrics
