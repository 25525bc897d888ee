package dues_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubdesk/dues-engine/dues"
)

func TestCache_HitEqualsFreshComputation(t *testing.T) {
	// GIVEN: A cached tuple
	// WHEN: Computing the same tuple again through the cache
	// THEN: The hit is behaviorally identical to a fresh computation

	c := dues.NewCache(10)
	join := date(2024, time.June, 15)

	first := c.Compute(join, dues.TierUniversityBased, 2025, nil)
	second := c.Compute(join, dues.TierUniversityBased, 2025, nil)
	fresh := dues.Compute(join, dues.TierUniversityBased, 2025, nil)

	assert.True(t, first.Equal(second))
	assert.True(t, second.Equal(fresh))

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestCache_KeyDistinguishesEveryInput(t *testing.T) {
	// Tuples differing in any component (join, tier, year, leave) are
	// separate entries; tax and currency are not part of the key at all.

	c := dues.NewCache(100)

	c.Compute(date(2024, time.June, 15), dues.TierUniversityBased, 2025, nil)
	c.Compute(date(2024, time.June, 16), dues.TierUniversityBased, 2025, nil)
	c.Compute(date(2024, time.June, 15), dues.TierCommunityBased, 2025, nil)
	c.Compute(date(2024, time.June, 15), dues.TierUniversityBased, 2026, nil)
	c.Compute(date(2024, time.June, 15), dues.TierUniversityBased, 2025, leaveOn(2024, time.December, 1))

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Hits)
}

func TestCache_EvictsOldestInsertionFirst(t *testing.T) {
	// GIVEN: A cache at capacity 3
	// WHEN: A fourth distinct tuple is inserted
	// THEN: The first-inserted entry is evicted, regardless of how
	//       recently it was read (FIFO, not LRU)

	c := dues.NewCache(3)

	first := date(2024, time.January, 1)
	c.Compute(first, dues.TierCommunityBased, 2025, nil)
	c.Compute(date(2024, time.February, 1), dues.TierCommunityBased, 2025, nil)
	c.Compute(date(2024, time.March, 1), dues.TierCommunityBased, 2025, nil)

	// Touch the oldest entry; FIFO ignores recency.
	c.Compute(first, dues.TierCommunityBased, 2025, nil)

	c.Compute(date(2024, time.April, 1), dues.TierCommunityBased, 2025, nil)

	assert.Equal(t, 3, c.Len())
	_, ok := c.Lookup(first, dues.TierCommunityBased, 2025, nil)
	assert.False(t, ok, "oldest insertion should be evicted despite the recent hit")
	_, ok = c.Lookup(date(2024, time.February, 1), dues.TierCommunityBased, 2025, nil)
	assert.True(t, ok)
}

func TestCache_EvictedEntryRecomputesIdentically(t *testing.T) {
	c := dues.NewCache(1)
	join := date(2024, time.June, 15)

	before := c.Compute(join, dues.TierUniversityBased, 2025, nil)
	c.Compute(date(2024, time.July, 1), dues.TierUniversityBased, 2025, nil) // evicts

	_, ok := c.Lookup(join, dues.TierUniversityBased, 2025, nil)
	require.False(t, ok)

	after := c.Compute(join, dues.TierUniversityBased, 2025, nil)
	assert.True(t, before.Equal(after))
}

func TestCache_ResetDropsEntriesAndCounters(t *testing.T) {
	c := dues.NewCache(10)
	c.Compute(date(2024, time.June, 15), dues.TierUniversityBased, 2025, nil)
	c.Compute(date(2024, time.June, 15), dues.TierUniversityBased, 2025, nil)

	c.Reset()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}

func TestCache_NonPositiveCapacitySelectsDefault(t *testing.T) {
	c := dues.NewCache(0)
	assert.Equal(t, dues.DefaultCacheCapacity, c.Stats().Capacity)
}
