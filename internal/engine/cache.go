package engine

import (
	"container/list"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"collision-engine/internal/config"
	"collision-engine/internal/geom"
)

// Fingerprint returns an order-sensitive hash of the AABB sequence's
// values (FNV-1a over the raw float bits). A pure function of the values,
// so identical inputs anywhere in the process share a cache entry.
func Fingerprint(boxes []geom.AABB) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	for _, b := range boxes {
		write(b.X)
		write(b.Y)
		write(b.Width)
		write(b.Height)
	}
	return h.Sum64()
}

// ResultCache maps input fingerprints to previously computed pair sets.
// Bounded by LRU capacity, TTL expiry, or both; the engine's config
// guarantees at least one policy is active. Get and Put both copy the
// pair slice, so cached data is never aliased by callers. Safe for
// concurrent use.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[uint64]*list.Element
	order    *list.List // front = most recently used

	hits   uint64
	misses uint64

	now func() time.Time // injectable for TTL tests
}

type cacheEntry struct {
	key      uint64
	pairs    []Pair
	storedAt time.Time
}

// NewResultCache creates a cache with the given (validated) policy.
func NewResultCache(cfg config.CacheConfig) *ResultCache {
	return &ResultCache{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		entries:  make(map[uint64]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns a copy of the cached pairs for key, refreshing its LRU
// position. An expired entry is removed and reported as a miss.
func (c *ResultCache) Get(key uint64) ([]Pair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		c.removeLocked(el)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return append([]Pair(nil), entry.pairs...), true
}

// Put stores a copy of pairs under key, evicting the least-recently-used
// entry once capacity is exceeded.
func (c *ResultCache) Put(key uint64, pairs []Pair) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := append([]Pair(nil), pairs...)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.pairs = stored
		entry.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, pairs: stored, storedAt: c.now()})
	c.entries[key] = el

	if c.capacity > 0 {
		for c.order.Len() > c.capacity {
			c.removeLocked(c.order.Back())
		}
	}
}

// removeLocked drops an entry. Caller holds c.mu.
func (c *ResultCache) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	entry := el.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(el)
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hitRate"`
	Size    int     `json:"size"`
}

// Stats returns current cache counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{Hits: c.hits, Misses: c.misses, Size: c.order.Len()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
