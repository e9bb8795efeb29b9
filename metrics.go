package goSession

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID identifies one session lifecycle counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricRefreshSuccess counts backend refreshes that produced a usable token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes that forced a logout.
	MetricRefreshFailure
	// MetricRefreshShared counts AccessToken callers that received an outcome shared
	// with other callers.
	MetricRefreshShared
	// MetricRefreshDiscarded counts refresh results dropped because the session was
	// replaced while the refresh was in flight.
	MetricRefreshDiscarded
	// MetricLogout counts explicit logouts of a live session.
	MetricLogout
	// MetricForcedLogout counts logouts caused by refresh failure or a stale stored
	// refresh token.
	MetricForcedLogout
	// MetricHydrateSuccess counts startups restored from durable storage.
	MetricHydrateSuccess
	// MetricHydrateSkipped counts startups with no usable stored refresh token.
	MetricHydrateSkipped
	// MetricHydrateFailure counts startups whose restore refresh failed.
	MetricHydrateFailure
	// MetricBootstrapRun counts post-authentication load sequences.
	MetricBootstrapRun
	// MetricBootstrapCollectionFailure counts individual collection load failures.
	MetricBootstrapCollectionFailure
	// MetricRefreshLatency is the latency histogram of AccessToken calls that waited
	// on a refresh.
	MetricRefreshLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the refresh latency buckets. A
// final overflow bucket follows them.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// counterSlot keeps each counter on its own cache line so hot counters updated
// from many goroutines do not contend.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free counters and the refresh latency histogram. A nil
// *Metrics is a valid no-op.
type Metrics struct {
	enabled bool
	latency bool
	slots   [metricIDCount]counterSlot
	refresh [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) { m.Add(id, 1) }

// Add adds n to id. Histogram IDs are ignored.
func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || n == 0 || !isCounter(id) {
		return
	}
	m.slots[id].n.Add(n)
}

// Observe records d for id. Only MetricRefreshLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricRefreshLatency {
		return
	}
	m.refresh[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !isCounter(id) {
		return 0
	}
	return m.slots[id].n.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isCounter(id) {
			snap.Counters[id] = m.slots[id].n.Load()
		}
	}
	if m.latency {
		buckets := make([]uint64, latencyBucketCount)
		for i := range m.refresh {
			buckets[i] = m.refresh[i].Load()
		}
		snap.Histograms[MetricRefreshLatency] = buckets
	}
	return snap
}

func isCounter(id MetricID) bool {
	return id < metricIDCount && id != MetricRefreshLatency
}

// latencyBucket returns the first bucket whose bound is >= d, or the overflow bucket.
func latencyBucket(d time.Duration) int {
	return sort.Search(len(latencyBounds), func(i int) bool { return d <= latencyBounds[i] })
}
