package engine

import (
	"sort"

	"collision-engine/internal/engine/spatial"
	"collision-engine/internal/geom"
)

// The three-plus-one broad-phase algorithms. Each appends confirmed pairs
// (A < B, no duplicates) to out and returns the grown slice; the façade
// owns pooling, sorting, and copying.

// detectNaive is the all-pairs O(n²) scan. Below the TNaive threshold the
// lack of index-construction overhead makes it the fastest option.
func detectNaive(boxes []geom.AABB, out []Pair) []Pair {
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			if geom.Overlaps(boxes[i], boxes[j]) {
				out = append(out, Pair{A: i, B: j})
			}
		}
	}
	return out
}

// detectSpatialHash inserts every box into the grid, then tests each box
// only against its spatial neighbors. The j > i guard keeps pair (j, i)
// from being re-emitted after (i, j). When uf is non-nil every confirmed
// collision also unions the two indices, so connected components fall out
// of the same pass.
func detectSpatialHash(boxes []geom.AABB, grid *spatial.Grid, visited *spatial.VisitedSet, uf *spatial.UnionFind, out []Pair) []Pair {
	for i, b := range boxes {
		grid.Insert(uint32(i), b)
	}

	for i, b := range boxes {
		for _, j := range grid.Query(b, visited) {
			if int(j) <= i {
				continue
			}
			if geom.Overlaps(b, boxes[j]) {
				out = append(out, Pair{A: i, B: int(j)})
				if uf != nil {
					uf.QueueUnion(uint32(i), j)
				}
			}
		}
	}

	if uf != nil {
		uf.Flush()
	}
	return out
}

// sapEndpoint is one end of a box's x-interval on the sweep axis.
type sapEndpoint struct {
	value float64
	index uint32
	isMin bool
}

// detectSweepAndPrune projects boxes onto the x-axis, sorts interval
// endpoints, and sweeps an active set. Candidates that overlap on x are
// narrowed by the exact test, which also enforces the strict boundary
// rule on y.
//
// Max endpoints sort before min endpoints at equal values, so intervals
// that merely touch never become candidates (touching is not a collision).
func detectSweepAndPrune(boxes []geom.AABB, out []Pair) []Pair {
	endpoints := make([]sapEndpoint, 0, len(boxes)*2)
	for i, b := range boxes {
		endpoints = append(endpoints,
			sapEndpoint{b.X, uint32(i), true},
			sapEndpoint{b.MaxX(), uint32(i), false},
		)
	}

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].value != endpoints[j].value {
			return endpoints[i].value < endpoints[j].value
		}
		return !endpoints[i].isMin && endpoints[j].isMin
	})

	active := make([]uint32, 0, 16)
	for _, ep := range endpoints {
		if ep.isMin {
			for _, other := range active {
				if geom.Overlaps(boxes[ep.index], boxes[other]) {
					out = append(out, makePair(int(ep.index), int(other)))
				}
			}
			active = append(active, ep.index)
		} else {
			for i, id := range active {
				if id == ep.index {
					// Swap with last and truncate.
					active[i] = active[len(active)-1]
					active = active[:len(active)-1]
					break
				}
			}
		}
	}

	return out
}
