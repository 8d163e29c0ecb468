package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGraphDoc = `
name: test-graph
main_objective: connect a to c
version: "1"
nodes:
  - {id: a, label: A, type: concept, confidence: 1.0}
  - {id: b, label: B, type: concept, confidence: 1.0}
edges:
  - {source: a, target: b, relation: related-to, confidence: 0.8}
`

func writeGraphFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func newTestRedisTier(t *testing.T) (*RedisTier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tier := NewRedisTierFromClient(client, "hypatia:test")
	t.Cleanup(func() { _ = tier.Close() })
	return tier, mr
}

func TestGraphCacheMemoryHit(t *testing.T) {
	path := writeGraphFile(t, testGraphDoc)
	gc := NewGraphCache(GraphCacheConfig{MaxSize: 4})

	g1, err := gc.Load(context.Background(), path)
	require.NoError(t, err)

	g2, err := gc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, g1, g2, "second load should come from the in-memory tier")

	stats := gc.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestGraphCacheInvalidatesOnModification(t *testing.T) {
	path := writeGraphFile(t, testGraphDoc)
	gc := NewGraphCache(GraphCacheConfig{MaxSize: 4})

	g1, err := gc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, g1.NodeCount())

	// Rewrite with a third node and a newer mtime.
	updated := testGraphDoc + `  - {source: b, target: a, relation: related-to, confidence: 0.5}
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	newTime := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, newTime, newTime))

	g2, err := gc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, g1, g2, "modified source must bypass the stale entry")
	assert.Equal(t, 2, g2.EdgeCount())
}

func TestGraphCachePersistedTierRepopulatesMemory(t *testing.T) {
	path := writeGraphFile(t, testGraphDoc)
	tier, _ := newTestRedisTier(t)

	// First cache instance populates the persisted tier.
	first := NewGraphCache(GraphCacheConfig{MaxSize: 4, Persisted: tier})
	_, err := first.Load(context.Background(), path)
	require.NoError(t, err)

	// A fresh instance has a cold memory tier but hits the persisted tier.
	second := NewGraphCache(GraphCacheConfig{MaxSize: 4, Persisted: tier})
	g, err := second.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "test-graph", g.Name)

	// And the hit repopulated memory: a third load is a memory hit.
	_, err = second.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.Stats().Hits)
}

func TestGraphCacheCorruptPersistedEntryIsMiss(t *testing.T) {
	path := writeGraphFile(t, testGraphDoc)
	tier, mr := newTestRedisTier(t)

	gc := NewGraphCache(GraphCacheConfig{MaxSize: 4, Persisted: tier})
	_, err := gc.Load(context.Background(), path)
	require.NoError(t, err)

	// Corrupt every persisted entry, then force a cold memory tier.
	for _, key := range mr.Keys() {
		require.NoError(t, mr.Set(key, "{{{not a graph"))
	}
	gc.Clear()

	g, err := gc.Load(context.Background(), path)
	require.NoError(t, err, "corruption must degrade to a reload, not fail")
	assert.Equal(t, "test-graph", g.Name)
}

func TestGraphCacheMissingSource(t *testing.T) {
	gc := NewGraphCache(GraphCacheConfig{})
	_, err := gc.Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
