package tgAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricVerifySuccess counts payloads that passed every check.
	MetricVerifySuccess MetricID = iota
	// MetricVerifyFailure counts payloads rejected for any reason.
	MetricVerifyFailure
	MetricMissingHash
	MetricSignatureInvalid
	MetricStalePayload
	MetricMalformedUser
	// MetricReplayDetected counts payload hashes presented a second time.
	MetricReplayDetected
	MetricRateLimitHit
	// MetricUpstreamError counts Redis failures during issue or validate.
	MetricUpstreamError
	MetricSessionIssued
	// MetricSessionReplaced counts sessions revoked by the single-session policy.
	MetricSessionReplaced
	MetricSessionRevoked
	MetricValidateSuccess
	MetricValidateFailure
	MetricValidateLatency
	// MetricIssueLatency covers IssueSession end to end, failures included.
	MetricIssueLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the finite buckets. One
// overflow bucket follows.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const bucketCount = len(latencyBounds) + 1

// histogramSlot maps histogram ids to their storage index; counters map to -1.
func histogramSlot(id MetricID) int {
	switch id {
	case MetricValidateLatency:
		return 0
	case MetricIssueLatency:
		return 1
	default:
		return -1
	}
}

var histogramIDs = [...]MetricID{MetricValidateLatency, MetricIssueLatency}

// counterCell sits on its own cache line so hot counters do not contend.
type counterCell struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free counters and fixed-bucket latency histograms.
type Metrics struct {
	enabled bool
	latency bool

	counters   [metricIDCount]counterCell
	histograms [len(histogramIDs)][bucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || histogramSlot(id) >= 0 {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in histogram id. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	slot := histogramSlot(id)
	if slot < 0 {
		return
	}
	m.histograms[slot][bucketIndex(d)].Add(1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter and, when latency is enabled, every histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if histogramSlot(id) >= 0 {
			continue
		}
		s.Counters[id] = m.counters[id].n.Load()
	}
	if !m.latency {
		return s
	}
	for slot, id := range histogramIDs {
		buckets := make([]uint64, bucketCount)
		for i := range buckets {
			buckets[i] = m.histograms[slot][i].Load()
		}
		s.Histograms[id] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	// Millisecond resolution keeps 5.4ms in the 5ms bucket.
	d = d.Truncate(time.Millisecond)
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
