package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/graph"
)

// GraphCache caches loaded knowledge graphs keyed by (source path, last
// modification time), so a rewritten source file naturally invalidates its
// cached graph. Lookup is two-tier: in-memory first, then the optional
// persisted tier, which on hit repopulates the in-memory tier.
type GraphCache struct {
	memory    *Cache[*graph.KnowledgeGraph]
	persisted PersistedTier
	ttl       time.Duration
	logger    *slog.Logger
}

// GraphCacheConfig configures a GraphCache.
type GraphCacheConfig struct {
	// MaxSize bounds the in-memory tier. Zero means unbounded.
	MaxSize int

	// TTL applies to both tiers. Zero disables expiry.
	TTL time.Duration

	// Persisted is the optional second tier. Nil disables it.
	Persisted PersistedTier

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewGraphCache creates a GraphCache.
func NewGraphCache(cfg GraphCacheConfig) *GraphCache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphCache{
		memory: New[*graph.KnowledgeGraph](
			WithMaxSize[*graph.KnowledgeGraph](cfg.MaxSize),
			WithTTL[*graph.KnowledgeGraph](cfg.TTL),
		),
		persisted: cfg.Persisted,
		ttl:       cfg.TTL,
		logger:    logger,
	}
}

// Load returns the graph for the given source path, consulting the in-memory
// tier, then the persisted tier, and finally loading and validating the
// source document. A corrupt persisted entry is treated as a miss and logged,
// never surfaced as a failure.
func (gc *GraphCache) Load(ctx context.Context, path string) (*graph.KnowledgeGraph, error) {
	mtime, err := graph.SourceModTime(path)
	if err != nil {
		return nil, hypatia.NewNotFoundError("GraphCache.Load", err)
	}
	key := fmt.Sprintf("%s|%d", path, mtime)

	if g, ok := gc.memory.Get(key); ok {
		return g, nil
	}

	if gc.persisted != nil {
		if g, ok := gc.loadPersisted(ctx, key); ok {
			gc.memory.Set(key, g)
			return g, nil
		}
	}

	g, err := graph.Load(path)
	if err != nil {
		return nil, err
	}

	gc.memory.Set(key, g)
	if gc.persisted != nil {
		gc.storePersisted(ctx, key, g)
	}
	return g, nil
}

// loadPersisted attempts the persisted tier. Decode failures are recorded as
// corruption and reported as a miss.
func (gc *GraphCache) loadPersisted(ctx context.Context, key string) (*graph.KnowledgeGraph, bool) {
	data, ok, err := gc.persisted.Get(ctx, key)
	if err != nil {
		gc.logger.Warn("graph cache persisted tier unavailable", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	g, err := graph.Parse(data)
	if err != nil {
		gc.logger.Warn("graph cache entry corrupt, treating as miss",
			"key", key, "error", fmt.Errorf("%w: %v", hypatia.ErrCacheCorruption, err))
		return nil, false
	}
	return g, true
}

func (gc *GraphCache) storePersisted(ctx context.Context, key string, g *graph.KnowledgeGraph) {
	data, err := graph.Encode(g)
	if err != nil {
		gc.logger.Warn("graph cache encode failed", "key", key, "error", err)
		return
	}
	if err := gc.persisted.Set(ctx, key, data, gc.ttl); err != nil {
		gc.logger.Warn("graph cache persisted write failed", "key", key, "error", err)
	}
}

// Stats returns the in-memory tier statistics.
func (gc *GraphCache) Stats() Stats {
	return gc.memory.Stats()
}

// Clear drops the in-memory tier. Persisted entries age out by TTL.
func (gc *GraphCache) Clear() {
	gc.memory.Clear()
}
