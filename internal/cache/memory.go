package cache

import (
	"context"
	"strings"
	"sync"

	"finflow/pkg/platform/sentinel"
)

// InMemory is a process-local Cache for tests and single-node deployments.
// It intentionally favors clarity over performance.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string][]byte)}
}

func (c *InMemory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.entries[key]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, sentinel.ErrNotFound
}

func (c *InMemory) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	return nil
}

func (c *InMemory) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if prefix, ok := strings.CutSuffix(key, "*"); ok {
			for k := range c.entries {
				if strings.HasPrefix(k, prefix) {
					delete(c.entries, k)
				}
			}
			continue
		}
		delete(c.entries, key)
	}
	return nil
}

// Len reports the number of live entries; test helper.
func (c *InMemory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
