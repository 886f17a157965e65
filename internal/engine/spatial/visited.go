package spatial

// VisitedSet is an epoch-based membership set over integer ids in [0, n).
// Begin() starts a new epoch in O(1) instead of zeroing the whole array,
// so one set can serve thousands of grid queries per detection call
// without allocation.
type VisitedSet struct {
	marks []uint32
	epoch uint32
}

// NewVisitedSet creates a set sized for ids in [0, n).
func NewVisitedSet(n int) *VisitedSet {
	return &VisitedSet{marks: make([]uint32, n)}
}

// Reset grows the set to hold ids in [0, n) and invalidates all marks.
// Used when the set comes out of a pool.
func (v *VisitedSet) Reset(n int) {
	if n > len(v.marks) {
		v.marks = make([]uint32, n)
		v.epoch = 0
	}
	v.Begin()
}

// Begin starts a new epoch; all ids become unvisited.
func (v *VisitedSet) Begin() {
	v.epoch++
	if v.epoch == 0 {
		// Epoch counter wrapped: zero the marks once and restart at 1.
		for i := range v.marks {
			v.marks[i] = 0
		}
		v.epoch = 1
	}
}

// Visit marks id as visited and reports whether this is the first visit
// in the current epoch.
func (v *VisitedSet) Visit(id uint32) bool {
	if v.marks[id] == v.epoch {
		return false
	}
	v.marks[id] = v.epoch
	return true
}

// Visited reports whether id was visited in the current epoch.
func (v *VisitedSet) Visited(id uint32) bool {
	return v.marks[id] == v.epoch
}

// Cap returns the number of ids the set can hold.
func (v *VisitedSet) Cap() int { return len(v.marks) }
