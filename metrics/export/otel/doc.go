// Package otel publishes goSession metrics through OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per session counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// Manager.MetricsSnapshot on each collection cycle. Callers own the MeterProvider.
package otel
