package spatial

import (
	"math/rand"
	"sort"
	"testing"

	"collision-engine/internal/geom"
)

func sortedQuery(g *Grid, box geom.AABB, v *VisitedSet) []uint32 {
	out := append([]uint32(nil), g.Query(box, v)...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TestGridInsertQuery verifies that queries return exactly the objects
// whose cell ranges intersect the query's cell range, deduplicated.
func TestGridInsertQuery(t *testing.T) {
	g := NewGrid(10)
	v := NewVisitedSet(8)

	g.Insert(0, geom.AABB{X: 0, Y: 0, Width: 5, Height: 5})    // cell (0,0)
	g.Insert(1, geom.AABB{X: 8, Y: 8, Width: 10, Height: 10})  // spans 4 cells
	g.Insert(2, geom.AABB{X: 50, Y: 50, Width: 5, Height: 5})  // far away

	got := sortedQuery(g, geom.AABB{X: 1, Y: 1, Width: 5, Height: 5}, v)
	want := []uint32{0, 1}
	if len(got) != len(want) {
		t.Fatalf("query returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("query returned %v, want %v", got, want)
		}
	}
}

// TestGridQueryDeduplicates checks that an object spanning several shared
// cells is returned once, not once per cell.
func TestGridQueryDeduplicates(t *testing.T) {
	g := NewGrid(10)
	v := NewVisitedSet(4)

	// Spans a 3x3 block of cells.
	g.Insert(0, geom.AABB{X: 0, Y: 0, Width: 25, Height: 25})

	got := g.Query(geom.AABB{X: 0, Y: 0, Width: 25, Height: 25}, v)
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("query returned %v, want [0]", got)
	}
}

// TestGridSmallObject verifies a box smaller than one cell still lands in
// at least one cell.
func TestGridSmallObject(t *testing.T) {
	g := NewGrid(100)
	v := NewVisitedSet(2)

	g.Insert(0, geom.AABB{X: 3, Y: 3, Width: 1, Height: 1})

	got := g.Query(geom.AABB{X: 0, Y: 0, Width: 10, Height: 10}, v)
	if len(got) != 1 {
		t.Errorf("query returned %v, want one candidate", got)
	}
}

// TestGridNegativeCoords verifies floor-based cell mapping for objects at
// negative world coordinates.
func TestGridNegativeCoords(t *testing.T) {
	g := NewGrid(10)
	v := NewVisitedSet(4)

	g.Insert(0, geom.AABB{X: -15, Y: -15, Width: 5, Height: 5})
	g.Insert(1, geom.AABB{X: 5, Y: 5, Width: 5, Height: 5})

	got := g.Query(geom.AABB{X: -16, Y: -16, Width: 8, Height: 8}, v)
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("query returned %v, want [0]", got)
	}
}

// TestGridClear verifies Clear empties every cell and that the grid is
// fully reusable afterwards (pool hygiene).
func TestGridClear(t *testing.T) {
	g := NewGrid(10)
	v := NewVisitedSet(8)

	for i := uint32(0); i < 8; i++ {
		g.Insert(i, geom.AABB{X: float64(i) * 3, Y: 0, Width: 5, Height: 5})
	}
	g.Clear()

	if s := g.Stats(); s.OccupiedCells != 0 || s.TotalEntries != 0 {
		t.Errorf("after Clear: stats = %+v, want empty", s)
	}
	if got := g.Query(geom.AABB{X: 0, Y: 0, Width: 100, Height: 100}, v); len(got) != 0 {
		t.Errorf("after Clear: query returned %v, want empty", got)
	}

	// Reuse after clear behaves like a fresh grid.
	g.Insert(3, geom.AABB{X: 0, Y: 0, Width: 5, Height: 5})
	got := g.Query(geom.AABB{X: 0, Y: 0, Width: 5, Height: 5}, v)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("after reuse: query returned %v, want [3]", got)
	}
}

func TestGridStats(t *testing.T) {
	g := NewGrid(10)

	g.Insert(0, geom.AABB{X: 0, Y: 0, Width: 5, Height: 5})
	g.Insert(1, geom.AABB{X: 1, Y: 1, Width: 5, Height: 5})

	s := g.Stats()
	if s.OccupiedCells != 1 {
		t.Errorf("OccupiedCells = %d, want 1", s.OccupiedCells)
	}
	if s.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", s.TotalEntries)
	}
	if s.MaxInCell != 2 {
		t.Errorf("MaxInCell = %d, want 2", s.MaxInCell)
	}
}

// TestVisitedSetEpochs verifies Begin resets membership without clearing
// the backing array.
func TestVisitedSetEpochs(t *testing.T) {
	v := NewVisitedSet(4)
	v.Begin()

	if !v.Visit(2) {
		t.Error("first Visit(2) should return true")
	}
	if v.Visit(2) {
		t.Error("second Visit(2) should return false")
	}

	v.Begin()
	if v.Visited(2) {
		t.Error("Visited(2) should be false after new epoch")
	}
	if !v.Visit(2) {
		t.Error("Visit(2) should return true after new epoch")
	}
}

func TestVisitedSetResetGrows(t *testing.T) {
	v := NewVisitedSet(2)
	v.Reset(100)
	if v.Cap() < 100 {
		t.Errorf("Cap = %d, want >= 100", v.Cap())
	}
	if !v.Visit(99) {
		t.Error("Visit(99) should succeed after growth")
	}
}

func BenchmarkGridInsert_1000(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	boxes := make([]geom.AABB, 1000)
	for i := range boxes {
		boxes[i] = geom.AABB{X: rng.Float64() * 1000, Y: rng.Float64() * 1000, Width: 20, Height: 20}
	}
	g := NewGrid(20)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.Clear()
		for j, box := range boxes {
			g.Insert(uint32(j), box)
		}
	}
}

func BenchmarkGridQuery_1000(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	boxes := make([]geom.AABB, 1000)
	g := NewGrid(20)
	for i := range boxes {
		boxes[i] = geom.AABB{X: rng.Float64() * 1000, Y: rng.Float64() * 1000, Width: 20, Height: 20}
		g.Insert(uint32(i), boxes[i])
	}
	v := NewVisitedSet(len(boxes))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = g.Query(boxes[i%len(boxes)], v)
	}
}
