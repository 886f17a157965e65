package engine

import (
	"sync"
	"testing"
	"time"

	"collision-engine/internal/config"
	"collision-engine/internal/geom"
)

func TestFingerprintOrderSensitive(t *testing.T) {
	a := []geom.AABB{{X: 0, Y: 0, Width: 1, Height: 1}, {X: 2, Y: 2, Width: 1, Height: 1}}
	b := []geom.AABB{{X: 2, Y: 2, Width: 1, Height: 1}, {X: 0, Y: 0, Width: 1, Height: 1}}

	if Fingerprint(a) == Fingerprint(b) {
		t.Error("fingerprint should be order-sensitive")
	}

	// Value semantics: a fresh slice with equal values fingerprints equal.
	c := []geom.AABB{{X: 0, Y: 0, Width: 1, Height: 1}, {X: 2, Y: 2, Width: 1, Height: 1}}
	if Fingerprint(a) != Fingerprint(c) {
		t.Error("equal values should share a fingerprint")
	}
}

func TestCacheGetPut(t *testing.T) {
	c := NewResultCache(config.CacheConfig{Enabled: true, Capacity: 4})

	if _, ok := c.Get(1); ok {
		t.Fatal("empty cache should miss")
	}

	c.Put(1, []Pair{{A: 0, B: 1}})
	got, ok := c.Get(1)
	if !ok || len(got) != 1 || got[0] != (Pair{A: 0, B: 1}) {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit 1 miss", s)
	}
}

// TestCacheReturnsCopies verifies mutation of a returned slice never
// corrupts the cached entry.
func TestCacheReturnsCopies(t *testing.T) {
	c := NewResultCache(config.CacheConfig{Enabled: true, Capacity: 4})

	original := []Pair{{A: 0, B: 1}}
	c.Put(1, original)
	original[0] = Pair{A: 9, B: 9} // caller mutates after Put

	got, _ := c.Get(1)
	if got[0] != (Pair{A: 0, B: 1}) {
		t.Error("Put did not copy the stored slice")
	}

	got[0] = Pair{A: 7, B: 7} // caller mutates the returned slice
	again, _ := c.Get(1)
	if again[0] != (Pair{A: 0, B: 1}) {
		t.Error("Get did not copy the returned slice")
	}
}

// TestCacheLRUEviction verifies the least-recently-used entry goes first.
func TestCacheLRUEviction(t *testing.T) {
	c := NewResultCache(config.CacheConfig{Enabled: true, Capacity: 2})

	c.Put(1, []Pair{{A: 0, B: 1}})
	c.Put(2, []Pair{{A: 0, B: 2}})
	c.Get(1)                       // touch 1: now 2 is the LRU entry
	c.Put(3, []Pair{{A: 0, B: 3}}) // evicts 2

	if _, ok := c.Get(2); ok {
		t.Error("entry 2 should have been evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("entry 1 should have survived")
	}
	if _, ok := c.Get(3); !ok {
		t.Error("entry 3 should be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

// TestCacheTTLExpiry verifies time-based expiry with an injected clock.
func TestCacheTTLExpiry(t *testing.T) {
	c := NewResultCache(config.CacheConfig{Enabled: true, TTL: time.Minute})

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put(1, []Pair{{A: 0, B: 1}})
	if _, ok := c.Get(1); !ok {
		t.Fatal("fresh entry should hit")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(1); ok {
		t.Error("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, Len = %d", c.Len())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewResultCache(config.CacheConfig{Enabled: true, Capacity: 16})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := uint64((seed + i) % 32)
				c.Put(key, []Pair{{A: 0, B: int(key) + 1}})
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()

	if c.Len() > 16 {
		t.Errorf("Len = %d, want <= capacity 16", c.Len())
	}
}
