package cache

import (
	"sync"
	"time"
)

// Cache is a minimal TTL cache for hot-path lookups.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache stores values in memory with per-entry TTLs. A zero TTL never expires.
type TTLCache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]cacheEntry[V]
	now   func() time.Time
}

func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return NewTTLCacheWithClock[K, V](time.Now)
}

// NewTTLCacheWithClock lets tests drive expiry.
func NewTTLCacheWithClock[K comparable, V any](now func() time.Time) *TTLCache[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[K, V]{items: make(map[K]cacheEntry[V]), now: now}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.expired(entry) {
		c.mu.Lock()
		// Re-check under the write lock so a fresh Set is not dropped.
		if current, ok := c.items[key]; ok && c.expired(current) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return entry.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = cacheEntry[V]{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeleteExpired drops every expired entry and returns how many were removed.
func (c *TTLCache[K, V]) DeleteExpired() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.items {
		if c.expired(entry) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TTLCache[K, V]) expired(entry cacheEntry[V]) bool {
	return !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt)
}
