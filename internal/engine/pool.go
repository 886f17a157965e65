package engine

import (
	"math/bits"
	"sync"

	"collision-engine/internal/config"
	"collision-engine/internal/engine/spatial"
)

// Pool holds reusable index structures keyed by resource kind: spatial
// grids, union-finds (size-classed), collision pair lists, and visited
// sets. Acquire resets the instance so callers cannot observe residual
// state; Release returns it to the free list or drops it when the list
// is full.
//
// The pool is purely an optimization, never a correctness dependency:
// a miss constructs directly and an exhausted pool is not an error. All
// methods are safe for concurrent use.
type Pool struct {
	cfg config.PoolConfig

	mu         sync.Mutex
	grids      []*spatial.Grid
	visited    []*spatial.VisitedSet
	pairLists  [][]Pair
	unionFinds map[int][]*spatial.UnionFind // size class -> free list

	hits   uint64
	misses uint64
	size   int
	peak   int
}

// NewPool creates a memory pool. With pooling disabled every acquisition
// constructs directly and no instance is retained.
func NewPool(cfg config.PoolConfig) *Pool {
	return &Pool{
		cfg:        cfg,
		unionFinds: make(map[int][]*spatial.UnionFind),
	}
}

// minUnionFindClass keeps tiny union-finds from fragmenting the size-class
// map; anything below 16 ids shares one class.
const minUnionFindClass = 16

// sizeClass rounds n up to the next power of two so a pooled union-find is
// never undersized for the request that gets it.
func sizeClass(n int) int {
	if n <= minUnionFindClass {
		return minUnionFindClass
	}
	return 1 << bits.Len(uint(n-1))
}

// AcquireGrid returns a cleared grid configured with cellSize.
func (p *Pool) AcquireGrid(cellSize float64) *spatial.Grid {
	if !p.cfg.Enabled {
		return spatial.NewGrid(cellSize)
	}

	p.mu.Lock()
	if n := len(p.grids); n > 0 {
		g := p.grids[n-1]
		p.grids = p.grids[:n-1]
		p.size--
		p.hits++
		p.mu.Unlock()
		g.Reset(cellSize)
		return g
	}
	p.misses++
	p.mu.Unlock()
	return spatial.NewGrid(cellSize)
}

// ReleaseGrid returns a grid to the pool.
func (p *Pool) ReleaseGrid(g *spatial.Grid) {
	if g == nil || !p.cfg.Enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.grids) >= p.cfg.MaxPerKind {
		return // at capacity: drop, the GC takes it
	}
	p.grids = append(p.grids, g)
	p.grow()
}

// AcquireUnionFind returns a union-find reset for ids [0, n), drawn from
// the smallest size class that fits.
func (p *Pool) AcquireUnionFind(n int) *spatial.UnionFind {
	if !p.cfg.Enabled {
		return spatial.NewUnionFind(n)
	}

	class := sizeClass(n)
	p.mu.Lock()
	if free := p.unionFinds[class]; len(free) > 0 {
		u := free[len(free)-1]
		p.unionFinds[class] = free[:len(free)-1]
		p.size--
		p.hits++
		p.mu.Unlock()
		u.Reset(n)
		return u
	}
	p.misses++
	p.mu.Unlock()

	u := spatial.NewUnionFind(class) // allocate the full class up front
	u.Reset(n)
	return u
}

// ReleaseUnionFind returns a union-find to its size-class free list.
func (p *Pool) ReleaseUnionFind(u *spatial.UnionFind) {
	if u == nil || !p.cfg.Enabled {
		return
	}
	class := sizeClass(u.Len())
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.unionFinds[class]) >= p.cfg.MaxPerKind {
		return
	}
	p.unionFinds[class] = append(p.unionFinds[class], u)
	p.grow()
}

// AcquireVisited returns a visited set sized for ids [0, n).
func (p *Pool) AcquireVisited(n int) *spatial.VisitedSet {
	if !p.cfg.Enabled {
		return spatial.NewVisitedSet(n)
	}

	p.mu.Lock()
	if l := len(p.visited); l > 0 {
		v := p.visited[l-1]
		p.visited = p.visited[:l-1]
		p.size--
		p.hits++
		p.mu.Unlock()
		v.Reset(n)
		return v
	}
	p.misses++
	p.mu.Unlock()
	return spatial.NewVisitedSet(n)
}

// ReleaseVisited returns a visited set to the pool.
func (p *Pool) ReleaseVisited(v *spatial.VisitedSet) {
	if v == nil || !p.cfg.Enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.visited) >= p.cfg.MaxPerKind {
		return
	}
	p.visited = append(p.visited, v)
	p.grow()
}

// AcquirePairList returns an empty pair list with retained capacity.
func (p *Pool) AcquirePairList() []Pair {
	if !p.cfg.Enabled {
		return make([]Pair, 0, 64)
	}

	p.mu.Lock()
	if n := len(p.pairLists); n > 0 {
		l := p.pairLists[n-1]
		p.pairLists = p.pairLists[:n-1]
		p.size--
		p.hits++
		p.mu.Unlock()
		return l[:0]
	}
	p.misses++
	p.mu.Unlock()
	return make([]Pair, 0, 64)
}

// ReleasePairList returns a pair list's backing storage to the pool. The
// caller must not use the slice afterwards.
func (p *Pool) ReleasePairList(l []Pair) {
	if l == nil || !p.cfg.Enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pairLists) >= p.cfg.MaxPerKind {
		return
	}
	p.pairLists = append(p.pairLists, l[:0])
	p.grow()
}

// grow bumps the size counters. Caller holds p.mu.
func (p *Pool) grow() {
	p.size++
	if p.size > p.peak {
		p.peak = p.size
	}
}

// PoolStats is a point-in-time snapshot of pool counters.
type PoolStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hitRate"`
	Size    int     `json:"size"`
	Peak    int     `json:"peak"`
	Enabled bool    `json:"enabled"`
}

// Stats returns current pool counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PoolStats{
		Hits:    p.hits,
		Misses:  p.misses,
		Size:    p.size,
		Peak:    p.peak,
		Enabled: p.cfg.Enabled,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
