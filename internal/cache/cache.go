// Package cache provides the read-through cache port the workflow services
// depend on, plus Redis-backed, in-memory and no-op implementations.
//
// The cache is injected at service construction; there is no process-global
// cache. Services only ever invalidate after a successful write, never
// before, so a cache entry can never be populated from pre-write state.
package cache

import (
	"context"
	"encoding/json"
	"errors"

	"finflow/pkg/platform/sentinel"
)

// Cache is the byte-level cache port. Keys are opaque fingerprint strings;
// a trailing '*' in a Delete argument removes every key with that prefix.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// GetOrSet is the typed read-through helper. On a miss it invokes produce,
// stores the JSON-encoded result and returns it. Cache write failures are
// swallowed: the produced value is authoritative and a failed population
// only costs the next caller a store read.
func GetOrSet[T any](ctx context.Context, c Cache, key string, produce func(context.Context) (T, error)) (T, error) {
	var zero T
	if c != nil {
		raw, err := c.Get(ctx, key)
		switch {
		case err == nil:
			var v T
			if uerr := json.Unmarshal(raw, &v); uerr == nil {
				return v, nil
			}
			// Undecodable entry: drop it and fall through to the producer.
			_ = c.Delete(ctx, key)
		case !errors.Is(err, sentinel.ErrNotFound):
			return zero, err
		}
	}

	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}

	if c != nil {
		if raw, merr := json.Marshal(v); merr == nil {
			_ = c.Set(ctx, key, raw)
		}
	}
	return v, nil
}

// Noop satisfies Cache while caching nothing. Used when Redis is not
// configured and in tests that assert pure store behavior.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, sentinel.ErrNotFound }
func (Noop) Set(context.Context, string, []byte) error   { return nil }
func (Noop) Delete(context.Context, ...string) error     { return nil }
