package engine

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"collision-engine/internal/config"
	"collision-engine/internal/geom"
)

// Strategy identifies one broad-phase algorithm. Selected once per call
// and passed explicitly through the pipeline, so the hot path carries no
// dynamic dispatch.
type Strategy uint8

const (
	// StrategyNaive is the all-pairs O(n²) scan. Wins below ~25 objects.
	StrategyNaive Strategy = iota
	// StrategySpatialHash tests only spatially nearby candidates.
	StrategySpatialHash
	// StrategySpatialHashUnionFind additionally materializes connected
	// components in the same pass.
	StrategySpatialHashUnionFind
	// StrategySweepAndPrune is an x-axis endpoint sweep. Never selected
	// automatically; available through a forced override.
	StrategySweepAndPrune

	numStrategies = 4
)

// String returns the bounded label used for stats and metrics.
func (s Strategy) String() string {
	switch s {
	case StrategyNaive:
		return "naive"
	case StrategySpatialHash:
		return "spatial_hash"
	case StrategySpatialHashUnionFind:
		return "spatial_hash_union_find"
	case StrategySweepAndPrune:
		return "sweep_and_prune"
	}
	return "unknown"
}

// MarshalJSON emits the strategy name rather than the numeric value.
func (s Strategy) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, ok := ParseStrategy(name)
	if !ok {
		return fmt.Errorf("unknown strategy %q", name)
	}
	*s = parsed
	return nil
}

// ParseStrategy resolves a strategy name as used in stats and API
// payloads. The boolean reports whether the name is known.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "naive":
		return StrategyNaive, true
	case "spatial_hash":
		return StrategySpatialHash, true
	case "spatial_hash_union_find":
		return StrategySpatialHashUnionFind, true
	case "sweep_and_prune":
		return StrategySweepAndPrune, true
	}
	return 0, false
}

// Workload describes one call's input, derived cheaply before selection.
// Not persisted; it only drives the strategy decision for that call.
type Workload struct {
	ObjectCount    int     `json:"objectCount"`
	SpatialDensity float64 `json:"spatialDensity"` // objects per unit of bounding area
	OverlapRatio   float64 `json:"overlapRatio"`   // sampled fraction of overlapping pairs
}

// Selector picks a strategy from workload characteristics using static,
// configurable thresholds. Each decision's realized latency is recorded
// into a rolling history so thresholds can be tuned offline; no online
// learning happens here.
type Selector struct {
	cfg config.SelectorConfig

	mu      sync.Mutex
	history []Decision
	next    int
	filled  bool
}

// Decision is one entry of the rolling selection history.
type Decision struct {
	Strategy Strategy      `json:"strategy"`
	Workload Workload      `json:"workload"`
	Latency  time.Duration `json:"latency"`
}

// NewSelector creates a selector with the given thresholds. The config
// must already be validated.
func NewSelector(cfg config.SelectorConfig) *Selector {
	size := cfg.HistorySize
	if size <= 0 {
		size = config.DefaultSelector().HistorySize
	}
	return &Selector{
		cfg:     cfg,
		history: make([]Decision, size),
	}
}

// Select picks the strategy for one call.
//
// Policy: tiny inputs go naive (index construction costs more than the
// quadratic scan saves); large, overlap-heavy inputs go to the combined
// spatial hash + union-find pass so clustering comes for free; everything
// else uses the plain spatial hash.
func (s *Selector) Select(w Workload) Strategy {
	if w.ObjectCount < s.cfg.TNaive {
		return StrategyNaive
	}
	if w.ObjectCount >= s.cfg.TSpatial && w.OverlapRatio >= s.cfg.OverlapHeavy {
		return StrategySpatialHashUnionFind
	}
	return StrategySpatialHash
}

// RecordOutcome stores the realized latency of one decision in the
// rolling history.
func (s *Selector) RecordOutcome(strategy Strategy, w Workload, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.next] = Decision{Strategy: strategy, Workload: w, Latency: latency}
	s.next++
	if s.next == len(s.history) {
		s.next = 0
		s.filled = true
	}
}

// History returns a copy of the rolling decision history, oldest first.
func (s *Selector) History() []Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filled {
		return append([]Decision(nil), s.history[:s.next]...)
	}
	out := make([]Decision, 0, len(s.history))
	out = append(out, s.history[s.next:]...)
	out = append(out, s.history[:s.next]...)
	return out
}

// overlapSampleCap bounds the pair-sampling work in deriveWorkload so
// workload estimation stays far cheaper than detection itself.
const overlapSampleCap = 64

// deriveWorkload computes the characteristics that drive selection.
// Density is objects per unit of input bounding area; the overlap ratio
// is estimated from a bounded, deterministic sample of pairs.
func deriveWorkload(boxes []geom.AABB) Workload {
	n := len(boxes)
	w := Workload{ObjectCount: n}
	if n == 0 {
		return w
	}

	minX, minY := boxes[0].X, boxes[0].Y
	maxX, maxY := boxes[0].MaxX(), boxes[0].MaxY()
	for _, b := range boxes[1:] {
		if b.X < minX {
			minX = b.X
		}
		if b.Y < minY {
			minY = b.Y
		}
		if b.MaxX() > maxX {
			maxX = b.MaxX()
		}
		if b.MaxY() > maxY {
			maxY = b.MaxY()
		}
	}
	area := (maxX - minX) * (maxY - minY)
	if area < 1 {
		area = 1
	}
	w.SpatialDensity = float64(n) / area

	if n < 2 {
		return w
	}

	// Deterministic sample: stride through distinct (i, i+stride) pairs.
	samples := n - 1
	if samples > overlapSampleCap {
		samples = overlapSampleCap
	}
	stride := (n - 1) / samples
	if stride < 1 {
		stride = 1
	}
	overlapping := 0
	taken := 0
	for i := 0; i+stride < n && taken < samples; i += stride {
		if geom.Overlaps(boxes[i], boxes[i+stride]) {
			overlapping++
		}
		taken++
	}
	if taken > 0 {
		w.OverlapRatio = float64(overlapping) / float64(taken)
	}

	return w
}
