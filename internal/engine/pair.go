// Package engine implements the adaptive collision detection engine: a
// façade that picks a broad-phase strategy per call, runs it on pooled
// index structures, caches results by input fingerprint, and records
// per-call performance statistics.
package engine

import "sort"

// Pair is a confirmed collision between the objects at indices A and B of
// the input slice. Invariants: A < B, no pair repeats, no self-pairs.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// makePair orders the two indices so A < B always holds.
func makePair(i, j int) Pair {
	if i < j {
		return Pair{A: i, B: j}
	}
	return Pair{A: j, B: i}
}

// sortPairs orders pairs ascending by A then B, the canonical output
// order. Determinism here is what makes strategy-equivalence testable.
func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}

// Result is the full output of one detection call.
type Result struct {
	// Pairs is sorted ascending by (A, B).
	Pairs []Pair `json:"pairs"`

	// Components holds the connected-component partition of the input
	// indices. Only populated when the union-find strategy ran; isolated
	// objects appear as singletons.
	Components [][]int `json:"components,omitempty"`

	// Strategy that produced the result.
	Strategy Strategy `json:"strategy"`

	// FromCache reports whether the pairs came from the result cache.
	FromCache bool `json:"fromCache"`
}
