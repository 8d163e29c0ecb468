package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Fingerprint computes the deterministic cache key for an LLM call from the
// prompt, the serialized pipeline state it was built from, and the model
// identifier. Identical stage inputs always produce the same fingerprint.
func Fingerprint(prompt, serializedState, modelID string) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(serializedState))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	return hex.EncodeToString(h.Sum(nil))
}

// ResponseCache caches serialized LLM responses by fingerprint, avoiding
// redundant external calls for identical stage inputs. Values are opaque
// bytes so the cache stays decoupled from the response schema.
type ResponseCache struct {
	memory    *Cache[[]byte]
	persisted PersistedTier
	ttl       time.Duration
	logger    *slog.Logger
}

// ResponseCacheConfig configures a ResponseCache.
type ResponseCacheConfig struct {
	// MaxSize bounds the in-memory tier. Zero means unbounded.
	MaxSize int

	// TTL applies to both tiers. Zero disables expiry.
	TTL time.Duration

	// Persisted is the optional second tier. Nil disables it.
	Persisted PersistedTier

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewResponseCache creates a ResponseCache.
func NewResponseCache(cfg ResponseCacheConfig) *ResponseCache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{
		memory: New[[]byte](
			WithMaxSize[[]byte](cfg.MaxSize),
			WithTTL[[]byte](cfg.TTL),
			WithSizeEstimator[[]byte](func(b []byte) int { return len(b) }),
		),
		persisted: cfg.Persisted,
		ttl:       cfg.TTL,
		logger:    logger,
	}
}

// Get returns the cached response bytes for a fingerprint, falling through
// to the persisted tier on a memory miss and repopulating memory on hit.
func (rc *ResponseCache) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	if data, ok := rc.memory.Get(fingerprint); ok {
		return data, true
	}

	if rc.persisted == nil {
		return nil, false
	}

	data, ok, err := rc.persisted.Get(ctx, fingerprint)
	if err != nil {
		rc.logger.Warn("response cache persisted tier unavailable", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	rc.memory.Set(fingerprint, data)
	return data, true
}

// Set stores response bytes under a fingerprint in both tiers.
func (rc *ResponseCache) Set(ctx context.Context, fingerprint string, data []byte) {
	rc.memory.Set(fingerprint, data)
	if rc.persisted != nil {
		if err := rc.persisted.Set(ctx, fingerprint, data, rc.ttl); err != nil {
			rc.logger.Warn("response cache persisted write failed", "error", err)
		}
	}
}

// Stats returns the in-memory tier statistics.
func (rc *ResponseCache) Stats() Stats {
	return rc.memory.Stats()
}

// Clear drops the in-memory tier. Persisted entries age out by TTL.
func (rc *ResponseCache) Clear() {
	rc.memory.Clear()
}
