// Package cache implements the two bounded, recency-ordered maps the
// resolver consults: (commit, env) -> Environment and commit ->
// []EnvDescription.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a fixed-capacity, least-recently-used map from string keys to
// values of type V. Get (lookup + recency update) and Put (insert,
// evicting the least recently touched entry when full) are each a single
// critical section; no I/O runs under the lock.
type Cache[V any] struct {
	mu    sync.Mutex
	store *lru.Cache[string, V]
}

// New builds a Cache with the given capacity.
func New[V any](capacity int) (*Cache[V], error) {
	store, err := lru.New[string, V](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{store: store}, nil
}

// Get returns the value for key and marks it most recently used. A miss
// does not perturb the recency of any other entry.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(key)
}

// Put inserts or overwrites key, marking it most recently used. If the
// cache is at capacity, the least recently touched entry is evicted.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Add(key, value)
}

// Len reports the current number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}
