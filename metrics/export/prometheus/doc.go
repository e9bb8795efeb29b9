// Package prometheus renders goSession metrics in Prometheus text exposition format.
//
// Counters are named gosession_*_total. The refresh latency histogram is
// gosession_refresh_latency_seconds and only has samples when latency histograms are
// enabled on the Manager.
//
// The package never registers anything globally; callers mount [PrometheusExporter.Handler].
package prometheus
