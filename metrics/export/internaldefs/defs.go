package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one session counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one session latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to dispatcher backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuthenticatedName is the gauge published for sources that report session state.
const (
	AuthenticatedName = "gosession_authenticated"
	AuthenticatedHelp = "1 while a session is established, 0 otherwise."
)

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Rejected or failed logins."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Backend refreshes that produced a usable access token."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refreshes that failed and forced a logout."},
	{ID: goSession.MetricRefreshShared, Name: "gosession_refresh_shared_total", Help: "Access token requests that shared an in-flight refresh."},
	{ID: goSession.MetricRefreshDiscarded, Name: "gosession_refresh_discarded_total", Help: "Refresh results discarded because the session changed while in flight."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Explicit logouts of a live session."},
	{ID: goSession.MetricForcedLogout, Name: "gosession_forced_logout_total", Help: "Logouts caused by refresh failure or a stale stored session."},
	{ID: goSession.MetricHydrateSuccess, Name: "gosession_hydrate_success_total", Help: "Sessions restored from durable storage."},
	{ID: goSession.MetricHydrateSkipped, Name: "gosession_hydrate_skipped_total", Help: "Startups without a usable stored session."},
	{ID: goSession.MetricHydrateFailure, Name: "gosession_hydrate_failure_total", Help: "Startups whose restore failed."},
	{ID: goSession.MetricBootstrapRun, Name: "gosession_bootstrap_run_total", Help: "Post-authentication load sequences."},
	{ID: goSession.MetricBootstrapCollectionFailure, Name: "gosession_bootstrap_collection_failure_total", Help: "Collections that failed to load."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Latency of access token requests that waited on a refresh."},
}

// HistogramBounds are the upper bounds of goSession's fixed latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into le-style cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
