package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality: strategy and event labels come from
// fixed enums, never from caller input.
var (
	detectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collision_detect_duration_seconds",
		Help:    "Time spent in one collision detection call",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
	}, []string{"strategy"}) // Bounded: naive, spatial_hash, spatial_hash_union_find, sweep_and_prune, cached

	detectObjects = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collision_detect_objects",
		Help:    "Input object count per detection call",
		Buckets: []float64{1, 10, 25, 50, 100, 250, 500, 1000, 5000, 10000},
	})

	detectPairs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collision_detect_pairs",
		Help:    "Collision pairs found per detection call",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000},
	})

	cacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collision_cache_events_total",
		Help: "Result cache lookups by outcome",
	}, []string{"outcome"}) // Bounded: "hit", "miss"

	poolEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collision_pool_events_total",
		Help: "Memory pool acquisitions by outcome",
	}, []string{"outcome"}) // Bounded: "hit", "miss"

	poolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collision_pool_size",
		Help: "Free instances currently held by the memory pool",
	})

	inputRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collision_input_rejected_total",
		Help: "Detection calls rejected by input validation",
	})
)

// recordDetect records one completed detection call.
func recordDetect(strategy string, objects, pairs int, d time.Duration) {
	detectDuration.WithLabelValues(strategy).Observe(d.Seconds())
	detectObjects.Observe(float64(objects))
	detectPairs.Observe(float64(pairs))
}

// recordCacheEvent records a cache lookup outcome.
func recordCacheEvent(hit bool) {
	if hit {
		cacheEvents.WithLabelValues("hit").Inc()
	} else {
		cacheEvents.WithLabelValues("miss").Inc()
	}
}

// syncPoolMetrics mirrors pool counters into prometheus. Called after each
// detection call with the pre-call counter snapshot to compute deltas.
func syncPoolMetrics(before, after PoolStats) {
	if d := after.Hits - before.Hits; d > 0 {
		poolEvents.WithLabelValues("hit").Add(float64(d))
	}
	if d := after.Misses - before.Misses; d > 0 {
		poolEvents.WithLabelValues("miss").Add(float64(d))
	}
	poolSize.Set(float64(after.Size))
}

// recordRejectedInput counts a validation failure.
func recordRejectedInput() {
	inputRejected.Inc()
}
