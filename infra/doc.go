// Package infra groups the adapters plugged into the district pipeline:
// LP solvers, profile and price loaders, the RTE price client, result and
// metrics sinks backed by SQLite, InfluxDB, Prometheus and MQTT, and the
// zerolog logger. Each adapter registers itself with a core factory and
// depends only on the interfaces defined in the core packages.
package infra
