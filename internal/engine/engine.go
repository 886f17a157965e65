package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"collision-engine/internal/config"
	"collision-engine/internal/engine/spatial"
	"collision-engine/internal/geom"
)

// ErrInvalidInput is wrapped by every input validation failure. Rejected
// calls never check out a pooled resource and never return partial results.
var ErrInvalidInput = errors.New("invalid input")

// Engine is the collision detection façade and the only component external
// callers touch. It exclusively owns its memory pool, result cache, and
// performance monitor; pooled structures are borrowed for the duration of
// one call and never shared.
//
// Each call runs single-threaded, but concurrent calls on one Engine are
// safe: the pool and cache are internally synchronized and hand out
// exclusive instances.
type Engine struct {
	cfg      config.EngineConfig
	selector *Selector
	pool     *Pool
	cache    *ResultCache // nil when caching is disabled
	monitor  *Monitor
}

// New creates an engine with a default monitor window. The configuration
// is validated eagerly; threshold mistakes surface here, not at call time.
func New(cfg config.EngineConfig) (*Engine, error) {
	return NewWithMonitor(cfg, config.DefaultMonitor())
}

// NewWithMonitor creates an engine with an explicit monitor configuration.
func NewWithMonitor(cfg config.EngineConfig, mon config.MonitorConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		selector: NewSelector(cfg.Selector),
		pool:     NewPool(cfg.Pool),
		monitor:  NewMonitor(mon),
	}
	if cfg.Cache.Enabled {
		e.cache = NewResultCache(cfg.Cache)
	}
	return e, nil
}

// DetectCollisions finds all overlapping pairs among the input boxes,
// selecting the algorithm per the current workload. The returned slice is
// sorted ascending by (A, B) and owned by the caller.
func (e *Engine) DetectCollisions(boxes []geom.AABB) ([]Pair, error) {
	res, err := e.detect(boxes, nil, false)
	if err != nil {
		return nil, err
	}
	return res.Pairs, nil
}

// Detect is DetectCollisions with the full result envelope (selected
// strategy, cache provenance).
func (e *Engine) Detect(boxes []geom.AABB) (*Result, error) {
	return e.detect(boxes, nil, false)
}

// DetectComponents runs the combined spatial hash + union-find pass and
// returns pairs plus the connected-component partition of all indices.
func (e *Engine) DetectComponents(boxes []geom.AABB) (*Result, error) {
	forced := StrategySpatialHashUnionFind
	return e.detect(boxes, &forced, true)
}

// DetectWithStrategy forces a specific algorithm, bypassing the selector
// and the cache read. Intended for testing and for known-shape workloads;
// every strategy returns the identical pair set.
func (e *Engine) DetectWithStrategy(boxes []geom.AABB, strategy Strategy) (*Result, error) {
	if strategy >= numStrategies {
		return nil, fmt.Errorf("%w: unknown strategy %d", ErrInvalidInput, strategy)
	}
	return e.detect(boxes, &strategy, strategy == StrategySpatialHashUnionFind)
}

// detect is the single pipeline behind all public entry points:
// validate → cache probe → workload → select → pooled structures →
// algorithm → copy out → release → cache store → record.
func (e *Engine) detect(boxes []geom.AABB, forced *Strategy, wantComponents bool) (*Result, error) {
	start := time.Now()

	for i, b := range boxes {
		if err := b.Validate(); err != nil {
			recordRejectedInput()
			return nil, fmt.Errorf("%w: box %d: %s", ErrInvalidInput, i, err)
		}
	}

	n := len(boxes)
	if n < 2 {
		// Nothing can collide; skip selector, pool, and cache entirely.
		res := &Result{Pairs: []Pair{}, Strategy: StrategyNaive}
		if wantComponents {
			res.Components = make([][]int, 0, n)
			if n == 1 {
				res.Components = append(res.Components, []int{0})
			}
		}
		return res, nil
	}

	var fingerprint uint64
	if e.cache != nil {
		fingerprint = Fingerprint(boxes)
	}
	// Forced and component-producing calls skip the cache read (the cache
	// holds pairs only, and a forced call must exercise its algorithm),
	// but their results are still stored for future default calls.
	if e.cache != nil && forced == nil && !wantComponents {
		if pairs, ok := e.cache.Get(fingerprint); ok {
			recordCacheEvent(true)
			recordDetect("cached", n, len(pairs), time.Since(start))
			return &Result{Pairs: pairs, FromCache: true}, nil
		}
		recordCacheEvent(false)
	}

	poolBefore := e.pool.Stats()
	workload := deriveWorkload(boxes)

	strategy := StrategyNaive
	if forced != nil {
		strategy = *forced
	} else {
		strategy = e.selector.Select(workload)
	}

	// Scoped acquisition: every release is deferred immediately after the
	// acquire, so no exit path (including a panic inside an algorithm) can
	// leak a pooled resource.
	out := e.pool.AcquirePairList()
	defer func() { e.pool.ReleasePairList(out) }()

	var components [][]int

	switch strategy {
	case StrategyNaive:
		out = detectNaive(boxes, out)

	case StrategySweepAndPrune:
		out = detectSweepAndPrune(boxes, out)

	case StrategySpatialHash, StrategySpatialHashUnionFind:
		grid := e.pool.AcquireGrid(e.cellSizeFor(boxes))
		defer e.pool.ReleaseGrid(grid)
		visited := e.pool.AcquireVisited(n)
		defer e.pool.ReleaseVisited(visited)

		var uf *spatial.UnionFind
		if strategy == StrategySpatialHashUnionFind {
			uf = e.pool.AcquireUnionFind(n)
			defer e.pool.ReleaseUnionFind(uf)
			uf.SetBatchSize(e.cfg.BatchUnionSize)
		}

		out = detectSpatialHash(boxes, grid, visited, uf, out)

		if uf != nil && wantComponents {
			components = uf.Components()
		}
	}

	// Copy out of the pooled list before it is released; the cache and the
	// caller both get data the pool can never touch again.
	pairs := make([]Pair, len(out))
	copy(pairs, out)
	sortPairs(pairs)

	if e.cache != nil {
		e.cache.Put(fingerprint, pairs)
	}

	elapsed := time.Since(start)
	e.monitor.Record(strategy, n, elapsed)
	e.selector.RecordOutcome(strategy, workload, elapsed)
	recordDetect(strategy.String(), n, len(pairs), elapsed)
	syncPoolMetrics(poolBefore, e.pool.Stats())

	return &Result{Pairs: pairs, Components: components, Strategy: strategy}, nil
}

// cellSizeFor resolves the grid cell size for one call: the configured
// size, or the median object dimension of the input when unset. Cells far
// smaller than typical objects inflate per-object cell counts; far larger
// ones inflate per-cell candidate counts.
func (e *Engine) cellSizeFor(boxes []geom.AABB) float64 {
	if e.cfg.CellSize > 0 {
		return e.cfg.CellSize
	}

	// Sample at most 128 boxes (deterministic stride) to keep the median
	// computation O(1)-ish on huge inputs.
	stride := 1
	if len(boxes) > 128 {
		stride = len(boxes) / 128
	}
	dims := make([]float64, 0, 256)
	for i := 0; i < len(boxes); i += stride {
		dims = append(dims, boxes[i].Width, boxes[i].Height)
	}
	sort.Float64s(dims)
	median := dims[len(dims)/2]
	if median <= 0 {
		return spatial.DefaultCellSize
	}
	return median
}

// StatsSnapshot is the read-only statistics export for external
// monitoring and reporting layers.
type StatsSnapshot struct {
	MonitorStats
	Pool         PoolStats  `json:"pool"`
	Cache        CacheStats `json:"cache"`
	PoolHitRate  float64    `json:"poolHitRate"`
	CacheHitRate float64    `json:"cacheHitRate"`
}

// Stats returns an aggregated snapshot of engine statistics.
func (e *Engine) Stats() StatsSnapshot {
	snap := StatsSnapshot{
		MonitorStats: e.monitor.Snapshot(),
		Pool:         e.pool.Stats(),
	}
	snap.PoolHitRate = snap.Pool.HitRate
	if e.cache != nil {
		snap.Cache = e.cache.Stats()
		snap.CacheHitRate = snap.Cache.HitRate
	}
	return snap
}

// SelectionHistory returns the rolling decision history for offline
// threshold tuning.
func (e *Engine) SelectionHistory() []Decision {
	return e.selector.History()
}

// Config returns the engine's configuration (a copy).
func (e *Engine) Config() config.EngineConfig {
	return e.cfg
}
