package engine

import (
	"sort"
	"sync"
	"time"

	"collision-engine/internal/config"
)

// Monitor accumulates per-call performance samples in a bounded ring and
// exposes aggregated statistics on demand. It also raises an advisory
// "degraded" flag when the recent p95 latency drifts well above the
// window's baseline; nothing acts on the flag automatically.
//
// Only computed calls are recorded: cache hits skip the monitor, so
// Calls and the latency percentiles describe algorithm executions.
// Cache traffic is reported separately through CacheStats.
type Monitor struct {
	cfg config.MonitorConfig

	mu         sync.Mutex
	samples    []sample
	next       int
	filled     bool
	calls      uint64
	selections [numStrategies]uint64
}

type sample struct {
	latency time.Duration
	objects int
}

// NewMonitor creates a monitor with the given window configuration.
func NewMonitor(cfg config.MonitorConfig) *Monitor {
	if cfg.WindowSize <= 0 {
		cfg = config.DefaultMonitor()
	}
	if cfg.RecentSize <= 0 || cfg.RecentSize > cfg.WindowSize {
		cfg.RecentSize = cfg.WindowSize / 8
		if cfg.RecentSize < 1 {
			cfg.RecentSize = 1
		}
	}
	return &Monitor{
		cfg:     cfg,
		samples: make([]sample, cfg.WindowSize),
	}
}

// Record stores one call's outcome.
func (m *Monitor) Record(strategy Strategy, objects int, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.selections[strategy]++
	m.samples[m.next] = sample{latency: latency, objects: objects}
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.filled = true
	}
}

// MonitorStats is an aggregated, read-only statistics snapshot.
type MonitorStats struct {
	Calls          uint64            `json:"calls"`
	MeanLatency    time.Duration     `json:"meanLatency"`
	MedianLatency  time.Duration     `json:"medianLatency"`
	P95Latency     time.Duration     `json:"p95Latency"`
	P99Latency     time.Duration     `json:"p99Latency"`
	SelectionCount map[string]uint64 `json:"algorithmSelectionCounts"`
	Degraded       bool              `json:"degraded"`
}

// Snapshot computes aggregate statistics over the sample window.
func (m *Monitor) Snapshot() MonitorStats {
	m.mu.Lock()

	count := m.next
	if m.filled {
		count = len(m.samples)
	}
	latencies := make([]time.Duration, 0, count)
	// Oldest-first so the tail of this slice is the most recent.
	if m.filled {
		for _, s := range m.samples[m.next:] {
			latencies = append(latencies, s.latency)
		}
	}
	for _, s := range m.samples[:m.next] {
		latencies = append(latencies, s.latency)
	}

	stats := MonitorStats{
		Calls:          m.calls,
		SelectionCount: make(map[string]uint64, numStrategies),
	}
	for i, n := range m.selections {
		if n > 0 {
			stats.SelectionCount[Strategy(i).String()] = n
		}
	}
	recentSize := m.cfg.RecentSize
	degradedFactor := m.cfg.DegradedFactor
	m.mu.Unlock()

	if len(latencies) == 0 {
		return stats
	}

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	stats.MeanLatency = sum / time.Duration(len(sorted))
	stats.MedianLatency = percentile(sorted, 0.50)
	stats.P95Latency = percentile(sorted, 0.95)
	stats.P99Latency = percentile(sorted, 0.99)

	// Degradation: p95 of the trailing samples measured against the p95 of
	// the history before them. Only meaningful once there is more history
	// than "recent"; advisory only, nothing acts on it automatically.
	if degradedFactor > 0 && len(latencies) > 2*recentSize {
		recent := append([]time.Duration(nil), latencies[len(latencies)-recentSize:]...)
		baselineSrc := append([]time.Duration(nil), latencies[:len(latencies)-recentSize]...)
		sort.Slice(recent, func(i, j int) bool { return recent[i] < recent[j] })
		sort.Slice(baselineSrc, func(i, j int) bool { return baselineSrc[i] < baselineSrc[j] })
		recentP95 := percentile(recent, 0.95)
		baseline := percentile(baselineSrc, 0.95)
		if baseline > 0 && float64(recentP95) > degradedFactor*float64(baseline) {
			stats.Degraded = true
		}
	}

	return stats
}

// percentile returns the q-th percentile of an ascending-sorted slice
// using the nearest-rank method.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(q*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
