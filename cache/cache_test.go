package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source for TTL tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestGetMissThenHit(t *testing.T) {
	c := New[string]()

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestLRUEvictsLeastRecentlyAccessed(t *testing.T) {
	clock := newFakeClock()
	c := New[int](WithMaxSize[int](3), WithClock[int](clock.Now))

	c.Set("a", 1)
	clock.Advance(time.Second)
	c.Set("b", 2)
	clock.Advance(time.Second)
	c.Set("c", 3)
	clock.Advance(time.Second)

	// Touch a and b so c becomes least recently accessed.
	c.Get("a")
	c.Get("b")
	clock.Advance(time.Second)

	c.Set("d", 4)

	_, ok := c.Get("c")
	assert.False(t, ok, "least-recently-accessed entry should be evicted")
	for _, k := range []string{"a", "b", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "entry %q should survive", k)
	}
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRUInsertingMaxSizePlusOneEvictsExactlyOne(t *testing.T) {
	clock := newFakeClock()
	const maxSize = 5
	c := New[int](WithMaxSize[int](maxSize), WithClock[int](clock.Now))

	for i := 0; i <= maxSize; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
		clock.Advance(time.Second)
	}

	assert.Equal(t, maxSize, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)

	_, ok := c.Get("k0")
	assert.False(t, ok, "oldest entry should be the victim")
}

func TestLRUEvictionTieBreaksByKeyOrder(t *testing.T) {
	clock := newFakeClock()
	c := New[int](WithMaxSize[int](2), WithClock[int](clock.Now))

	// Same accessedAt for both entries; lexicographic order decides.
	c.Set("zeta", 1)
	c.Set("alpha", 2)
	c.Set("newer", 3)

	_, ok := c.Get("alpha")
	assert.False(t, ok, "lexicographically smallest key among ties should be evicted")
	_, ok = c.Get("zeta")
	assert.True(t, ok)
}

func TestTTLExpiryIsMissAndPurges(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithTTL[string](time.Minute), WithClock[string](clock.Now))

	c.Set("k", "v")

	clock.Advance(30 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry within TTL should hit")

	clock.Advance(31 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry past TTL should miss")
	assert.Equal(t, 0, c.Len(), "expired entry should be purged")
	assert.Equal(t, uint64(1), c.Stats().Expirations)
}

func TestSetRefreshesCreatedAtAndResetsAccessCount(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithTTL[string](time.Minute), WithClock[string](clock.Now))

	c.Set("k", "v1")
	clock.Advance(50 * time.Second)

	// Overwrite restarts the TTL window from now.
	c.Set("k", "v2")
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok, "TTL should be measured from the refreshed created_at")
	assert.Equal(t, "v2", got)
}

func TestClearResetsEntriesAndStats(t *testing.T) {
	c := New[int]()
	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Stats{}, c.Stats())
}

func TestDelete(t *testing.T) {
	c := New[int]()
	c.Set("a", 1)
	c.Delete("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestUnboundedCacheNeverEvicts(t *testing.T) {
	c := New[int]()
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, 100, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}
