// Package spatial provides the broad-phase index structures used by the
// collision engine: a uniform hash grid, an epoch-based visited set, and a
// union-find over integer ids.
//
// All structures reuse their backing storage across calls (Clear/Reset keep
// capacity) so the engine's memory pool can hand them out repeatedly
// without allocation.
package spatial

import (
	"math"

	"collision-engine/internal/geom"
)

// Grid is a uniform-cell spatial hash. Cells are created lazily on insert
// and keyed by their integer cell coordinates, so the world needs no fixed
// bounds. An object's index appears in every cell its AABB spans.
//
// Optimal cell size is close to the median object dimension: much smaller
// cells inflate per-object cell count, much larger ones inflate per-cell
// candidate count.
type Grid struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize, avoids division in the hot path
	cells       map[CellKey][]uint32
	freeBuckets [][]uint32 // recycled bucket slices, refilled by Clear
	scratch     []uint32   // reusable buffer for query results
}

// CellKey identifies one grid cell by its integer cell coordinates.
type CellKey struct {
	X, Y int32
}

// DefaultCellSize is used when a grid is constructed with a non-positive
// cell size and no input is available to derive one from.
const DefaultCellSize = 64.0

// NewGrid creates a grid with the given cell size.
func NewGrid(cellSize float64) *Grid {
	g := &Grid{
		cells:   make(map[CellKey][]uint32, 64),
		scratch: make([]uint32, 0, 64),
	}
	g.setCellSize(cellSize)
	return g
}

func (g *Grid) setCellSize(cellSize float64) {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	g.cellSize = cellSize
	g.invCellSize = 1.0 / cellSize
}

// CellSize returns the current cell size.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Reset clears the grid and adopts a new cell size. Used when the grid
// comes out of a pool and must be indistinguishable from a fresh instance.
func (g *Grid) Reset(cellSize float64) {
	g.Clear()
	g.setCellSize(cellSize)
}

// Clear empties all cells without deallocating. Bucket slices are recycled
// through an internal free list so steady-state operation allocates
// nothing; the map keeps its internal storage across clear+refill cycles.
func (g *Grid) Clear() {
	for k, bucket := range g.cells {
		g.freeBuckets = append(g.freeBuckets, bucket[:0])
		delete(g.cells, k)
	}
	g.scratch = g.scratch[:0]
}

// cellCoord maps a world coordinate to a cell coordinate. Floor (not
// truncation) so negative coordinates land in the correct cell.
func (g *Grid) cellCoord(v float64) int32 {
	return int32(math.Floor(v * g.invCellSize))
}

// cellRange returns the inclusive range of cell coordinates the box spans.
// A box smaller than one cell still spans at least one cell.
func (g *Grid) cellRange(box geom.AABB) (minX, maxX, minY, maxY int32) {
	minX = g.cellCoord(box.X)
	maxX = g.cellCoord(box.MaxX())
	minY = g.cellCoord(box.Y)
	maxY = g.cellCoord(box.MaxY())
	return
}

// Insert adds an object index to every cell its AABB spans.
func (g *Grid) Insert(index uint32, box geom.AABB) {
	minX, maxX, minY, maxY := g.cellRange(box)
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			key := CellKey{cx, cy}
			bucket, ok := g.cells[key]
			if !ok {
				bucket = g.newBucket()
			}
			g.cells[key] = append(bucket, index)
		}
	}
}

// newBucket pops a recycled bucket slice or allocates a small one.
func (g *Grid) newBucket() []uint32 {
	if n := len(g.freeBuckets); n > 0 {
		b := g.freeBuckets[n-1]
		g.freeBuckets = g.freeBuckets[:n-1]
		return b
	}
	return make([]uint32, 0, 4)
}

// Query returns the deduplicated union of bucket contents for every cell
// the box spans. Deduplication uses the caller-provided visited set, which
// is advanced to a fresh epoch by this call.
//
// IMPORTANT: the returned slice is an internal scratch buffer reused on
// subsequent queries. Copy it if you need to persist the result.
func (g *Grid) Query(box geom.AABB, visited *VisitedSet) []uint32 {
	g.scratch = g.scratch[:0]
	visited.Begin()

	minX, maxX, minY, maxY := g.cellRange(box)
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			for _, id := range g.cells[CellKey{cx, cy}] {
				if visited.Visit(id) {
					g.scratch = append(g.scratch, id)
				}
			}
		}
	}

	return g.scratch
}

// Stats returns grid occupancy statistics for debugging/profiling.
func (g *Grid) Stats() GridStats {
	var totalEntries, maxInCell int
	for _, bucket := range g.cells {
		count := len(bucket)
		totalEntries += count
		if count > maxInCell {
			maxInCell = count
		}
	}

	avgPerCell := 0.0
	if len(g.cells) > 0 {
		avgPerCell = float64(totalEntries) / float64(len(g.cells))
	}

	return GridStats{
		CellSize:     g.cellSize,
		OccupiedCells: len(g.cells),
		TotalEntries: totalEntries,
		MaxInCell:    maxInCell,
		AvgPerCell:   avgPerCell,
	}
}

// GridStats contains grid occupancy statistics.
type GridStats struct {
	CellSize      float64 `json:"cellSize"`
	OccupiedCells int     `json:"occupiedCells"`
	TotalEntries  int     `json:"totalEntries"`
	MaxInCell     int     `json:"maxInCell"`
	AvgPerCell    float64 `json:"avgPerCell"`
}

// Cells exposes the occupied cell keys, for the debug renderer only.
func (g *Grid) Cells(fn func(key CellKey, count int)) {
	for k, bucket := range g.cells {
		fn(k, len(bucket))
	}
}
