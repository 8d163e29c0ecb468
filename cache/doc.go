// Package cache provides the TTL/LRU caching layer for the pipeline: a
// generic in-memory cache plus two specializations: a graph cache keyed by
// (source path, modification time) and a response cache keyed by a
// deterministic fingerprint of (prompt, serialized state, model id).
//
// Both specializations support an optional persisted tier backed by Redis.
// A miss in memory falls through to the persisted tier and, on hit,
// repopulates the in-memory tier. A corrupt persisted entry is treated as a
// miss, never as a fatal error.
//
// Each cache instance guards its state with a single mutex; the graph cache
// and response cache never contend with each other.
package cache
