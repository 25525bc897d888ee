package dues

import (
	"sync"
)

// =============================================================================
// CALCULATION CACHE - Bounded FIFO memoization of Compute
// =============================================================================

// DefaultCacheCapacity bounds memory for rosters that churn through many
// distinct membership intervals.
const DefaultCacheCapacity = 1000

// cacheKey is the exact input tuple of Compute. Tax and currency settings
// are deliberately absent: the calculator's output does not depend on them,
// so settings-only changes never invalidate cached results. A zero leave
// date stands for "no leave date".
type cacheKey struct {
	join  Date
	tier  Tier
	year  int
	leave Date
}

func newCacheKey(join Date, tier Tier, invoiceYear int, leave *Date) cacheKey {
	k := cacheKey{join: join, tier: tier, year: invoiceYear}
	if leave != nil {
		k.leave = *leave
	}
	return k
}

// Cache memoizes Compute results up to a fixed capacity, evicting in
// insertion order (FIFO, not LRU — recency is intentionally not tracked).
// It is purely a memoization layer: a hit is behaviorally identical to a
// fresh computation.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[cacheKey]Breakdown
	order    []cacheKey
	hits     uint64
	misses   uint64
}

// NewCache creates a cache holding at most capacity entries. A
// non-positive capacity selects DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[cacheKey]Breakdown, capacity),
	}
}

// Compute returns the memoized breakdown for the tuple, computing and
// storing it on a miss.
func (c *Cache) Compute(join Date, tier Tier, invoiceYear int, leave *Date) Breakdown {
	k := newCacheKey(join, tier, invoiceYear, leave)

	c.mu.Lock()
	if b, ok := c.entries[k]; ok {
		c.hits++
		c.mu.Unlock()
		return b
	}
	c.misses++
	c.mu.Unlock()

	// Compute outside the lock; the function is pure, so a racing
	// duplicate computation produces the identical value.
	b := Compute(join, tier, invoiceYear, leave)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[k]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[k] = b
		c.order = append(c.order, k)
	}
	return b
}

// Lookup reports whether the tuple is currently cached, without computing.
func (c *Cache) Lookup(join Date, tier Tier, invoiceYear int, leave *Date) (Breakdown, bool) {
	k := newCacheKey(join, tier, invoiceYear, leave)
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[k]
	return b, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops all entries and counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]Breakdown, c.capacity)
	c.order = nil
	c.hits = 0
	c.misses = 0
}

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Size     int
	Capacity int
	Hits     uint64
	Misses   uint64
}

// Stats returns current size, capacity and hit/miss counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size:     len(c.entries),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}
