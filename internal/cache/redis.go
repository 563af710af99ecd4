package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"finflow/pkg/platform/sentinel"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finflow_cache_hits_total",
		Help: "Total number of cache hits",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finflow_cache_misses_total",
		Help: "Total number of cache misses",
	})
)

// Redis is the production Cache backed by a shared Redis instance so every
// service replica observes the same invalidations.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed cache. Entries expire after ttl as a
// backstop; explicit invalidation after writes remains the primary
// coherence mechanism.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheMisses.Inc()
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	cacheHits.Inc()
	return raw, nil
}

func (c *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Delete removes keys; arguments ending in '*' are expanded with SCAN so
// whole key families (a list entry plus its per-id entries) drop in one
// invalidation call.
func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	var exact []string
	for _, key := range keys {
		if !strings.HasSuffix(key, "*") {
			exact = append(exact, key)
			continue
		}
		iter := c.client.Scan(ctx, 0, key, 0).Iterator()
		for iter.Next(ctx) {
			exact = append(exact, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache scan %q: %w", key, err)
		}
	}
	if len(exact) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, exact...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
