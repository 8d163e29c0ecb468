package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PersistedTier is the second lookup tier behind an in-memory cache.
// Implementations must be safe for concurrent use.
type PersistedTier interface {
	// Get returns the stored bytes for key and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores bytes under key with an optional TTL (zero means no expiry).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases the underlying connection.
	Close() error
}

// RedisOptions configures the Redis persisted tier connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// KeyPrefix namespaces all keys written by this tier.
	KeyPrefix string

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration
}

// RedisTier implements PersistedTier using go-redis/v9.
type RedisTier struct {
	client *redis.Client
	prefix string
}

// NewRedisTier creates a Redis-backed persisted tier and verifies
// connectivity with a ping.
func NewRedisTier(opts RedisOptions) (*RedisTier, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTier{client: client, prefix: opts.KeyPrefix}, nil
}

// NewRedisTierFromClient wraps an existing client. Used by tests with
// miniredis and by callers that manage their own connection pool.
func NewRedisTierFromClient(client *redis.Client, keyPrefix string) *RedisTier {
	return &RedisTier{client: client, prefix: keyPrefix}
}

func (t *RedisTier) fullKey(key string) string {
	if t.prefix == "" {
		return key
	}
	return t.prefix + ":" + key
}

// Get returns the stored bytes for key. A missing key is (nil, false, nil).
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := t.client.Get(ctx, t.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores bytes under key with the given TTL.
func (t *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.client.Set(ctx, t.fullKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (t *RedisTier) Close() error {
	return t.client.Close()
}
