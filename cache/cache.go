package cache

import (
	"sync"
	"time"
)

// Stats reports cumulative cache behavior since creation or the last Clear.
type Stats struct {
	// Hits is the number of gets that returned a live entry.
	Hits uint64

	// Misses is the number of gets that found no live entry.
	Misses uint64

	// Evictions is the number of entries removed by the LRU policy.
	Evictions uint64

	// Expirations is the number of entries purged because their TTL elapsed.
	Expirations uint64

	// Size is the current number of live entries.
	Size int
}

// entry is the internal bookkeeping record for one cached value.
// Entries are owned by their cache and mutated only under its lock.
type entry[V any] struct {
	key          string
	value        V
	createdAt    time.Time
	accessedAt   time.Time
	accessCount  int
	sizeEstimate int
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithMaxSize bounds the number of entries. Inserting beyond the bound
// evicts the least-recently-accessed entry, ties broken by lexicographic
// key order so eviction is deterministic. Zero means unbounded.
func WithMaxSize[V any](n int) Option[V] {
	return func(c *Cache[V]) {
		c.maxSize = n
	}
}

// WithTTL sets the entry lifetime measured from creation. A get on an entry
// older than the TTL is a miss and purges the entry. Zero disables expiry.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) {
		c.ttl = ttl
	}
}

// WithSizeEstimator sets a function that estimates the stored size of a
// value, recorded on the entry for stats and diagnostics.
func WithSizeEstimator[V any](f func(V) int) Option[V] {
	return func(c *Cache[V]) {
		c.estimate = f
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// Cache is a thread-safe in-memory cache with LRU eviction and optional TTL
// expiry. The zero value is not usable; construct with New.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[V]
	maxSize  int
	ttl      time.Duration
	estimate func(V) int
	now      func() time.Time
	stats    Stats
}

// New creates a Cache with the given options.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]*entry[V]),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and whether a live entry was found.
// An expired entry counts as a miss and is removed.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	now := c.now()
	if c.ttl > 0 && now.Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		c.stats.Expirations++
		c.stats.Misses++
		return zero, false
	}

	e.accessedAt = now
	e.accessCount++
	c.stats.Hits++
	return e.value, true
}

// Set stores a value under key. Inserting a new key beyond maxSize first
// evicts the least-recently-accessed entry. Overwriting an existing key
// refreshes its creation and access times and resets its access count.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	size := 0
	if c.estimate != nil {
		size = c.estimate(value)
	}

	c.entries[key] = &entry[V]{
		key:          key,
		value:        value,
		createdAt:    now,
		accessedAt:   now,
		accessCount:  0,
		sizeEstimate: size,
	}
}

// evictOldest removes the entry with the oldest accessedAt, ties broken by
// lexicographic key order. Caller must hold the lock.
func (c *Cache[V]) evictOldest() {
	var victim *entry[V]
	for _, e := range c.entries {
		if victim == nil {
			victim = e
			continue
		}
		if e.accessedAt.Before(victim.accessedAt) ||
			(e.accessedAt.Equal(victim.accessedAt) && e.key < victim.key) {
			victim = e
		}
	}
	if victim != nil {
		delete(c.entries, victim.key)
		c.stats.Evictions++
	}
}

// Delete removes the entry for key, if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries and resets the statistics.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.stats = Stats{}
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}
