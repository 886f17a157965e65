// Package geom provides the axis-aligned bounding box primitive and its
// pairwise overlap test. Everything here is a pure function over value
// types: no state, no allocation, O(1).
package geom

import (
	"fmt"
	"math"
)

// AABB is an axis-aligned bounding box. Immutable value type; during one
// detection call a box is identified by its index in the input slice.
type AABB struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Overlaps reports whether a and b overlap.
//
// Boundary rule: separation is strict, so boxes that touch exactly at an
// edge (a.X+a.Width == b.X) do NOT overlap. Every downstream algorithm
// depends on this exact policy; do not loosen it to >=.
//
// Zero-width or zero-height boxes are valid inputs and get no special
// treatment: a degenerate box strictly inside another's interval
// overlaps it; one sitting exactly on an edge does not.
func Overlaps(a, b AABB) bool {
	if a.X+a.Width <= b.X || b.X+b.Width <= a.X {
		return false
	}
	if a.Y+a.Height <= b.Y || b.Y+b.Height <= a.Y {
		return false
	}
	return true
}

// Validate checks that the box is usable for collision detection:
// all fields finite, width and height non-negative.
func (a AABB) Validate() error {
	if a.Width < 0 || a.Height < 0 {
		return fmt.Errorf("negative extent %gx%g", a.Width, a.Height)
	}
	if !isFinite(a.X) || !isFinite(a.Y) || !isFinite(a.Width) || !isFinite(a.Height) {
		return fmt.Errorf("non-finite field in {%g %g %g %g}", a.X, a.Y, a.Width, a.Height)
	}
	return nil
}

// MaxX returns the right edge of the box.
func (a AABB) MaxX() float64 { return a.X + a.Width }

// MaxY returns the bottom edge of the box (y grows downward, screen space).
func (a AABB) MaxY() float64 { return a.Y + a.Height }

// Area returns width*height. Used for density estimation.
func (a AABB) Area() float64 { return a.Width * a.Height }

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
