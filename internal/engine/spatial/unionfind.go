package spatial

// UnionFind tracks connected components among integer ids using flat
// parent/rank arrays (arena+index, no node objects). Path compression plus
// union-by-rank gives O(α(n)) amortized per operation, effectively
// constant for any realistic n.
type UnionFind struct {
	parent []uint32
	rank   []uint8

	// Batched unions: QueueUnion buffers pairs and flushes them once the
	// buffer reaches batchSize. Flushing order never affects the final
	// connectivity, so batching is purely a call-overhead optimization.
	batch     [][2]uint32
	batchSize int
}

// DefaultBatchSize is the union buffer size used when none is configured.
const DefaultBatchSize = 64

// NewUnionFind creates a union-find over ids [0, n), each its own root.
func NewUnionFind(n int) *UnionFind {
	u := &UnionFind{batchSize: DefaultBatchSize}
	u.Reset(n)
	return u
}

// Reset re-initializes the structure for ids [0, n), reusing backing
// storage where possible. Used when the instance comes out of a pool.
func (u *UnionFind) Reset(n int) {
	if cap(u.parent) >= n {
		u.parent = u.parent[:n]
		u.rank = u.rank[:n]
	} else {
		u.parent = make([]uint32, n)
		u.rank = make([]uint8, n)
	}
	for i := range u.parent {
		u.parent[i] = uint32(i)
		u.rank[i] = 0
	}
	u.batch = u.batch[:0]
}

// Len returns the number of ids tracked.
func (u *UnionFind) Len() int { return len(u.parent) }

// SetBatchSize configures the QueueUnion buffer threshold. Non-positive
// values disable buffering (every queued union applies immediately).
func (u *UnionFind) SetBatchSize(n int) { u.batchSize = n }

// Find returns the root of x, compressing the path as it goes. Iterative
// two-pass compression: walk to the root, then repoint every node on the
// path directly at it.
func (u *UnionFind) Find(x uint32) uint32 {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

// Union merges the sets containing x and y. Returns false if they already
// share a root (no-op), true if a merge happened.
func (u *UnionFind) Union(x, y uint32) bool {
	rx, ry := u.Find(x), u.Find(y)
	if rx == ry {
		return false
	}
	// Attach the lower-rank root under the higher-rank one.
	if u.rank[rx] < u.rank[ry] {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	if u.rank[rx] == u.rank[ry] {
		u.rank[rx]++
	}
	return true
}

// QueueUnion buffers a union and flushes the buffer once it reaches the
// configured batch size. Call Flush before reading connectivity.
func (u *UnionFind) QueueUnion(x, y uint32) {
	if u.batchSize <= 0 {
		u.Union(x, y)
		return
	}
	u.batch = append(u.batch, [2]uint32{x, y})
	if len(u.batch) >= u.batchSize {
		u.Flush()
	}
}

// Flush applies all buffered unions.
func (u *UnionFind) Flush() {
	for _, p := range u.batch {
		u.Union(p[0], p[1])
	}
	u.batch = u.batch[:0]
}

// BatchUnion queues a sequence of pairs and flushes.
func (u *UnionFind) BatchUnion(pairs [][2]uint32) {
	for _, p := range pairs {
		u.QueueUnion(p[0], p[1])
	}
	u.Flush()
}

// Connected reports whether x and y share a root. Buffered unions must be
// flushed first.
func (u *UnionFind) Connected(x, y uint32) bool {
	return u.Find(x) == u.Find(y)
}

// Components groups all ids by resolved root. Each group is ascending and
// groups are ordered by their smallest member; together they partition
// [0, n). An isolated id forms a singleton group. O(n) with compression
// already applied by the Find calls.
func (u *UnionFind) Components() [][]int {
	u.Flush()

	n := len(u.parent)
	groupOf := make(map[uint32]int, n/2+1)
	groups := make([][]int, 0, n/2+1)

	for i := 0; i < n; i++ {
		root := u.Find(uint32(i))
		gi, ok := groupOf[root]
		if !ok {
			gi = len(groups)
			groupOf[root] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}

	return groups
}
