package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pricecheck/backend/internal/domain"
)

// cacheItem represents a single item in the cache with expiration
type cacheItem[V any] struct {
	Value      V
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory cache with TTL support
type MemoryCache[V any] struct {
	data      map[string]cacheItem[V]
	mutex     sync.RWMutex
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache that sweeps expired entries
// every cleanupInterval until Close is called.
func NewMemoryCache[V any](cleanupInterval time.Duration) *MemoryCache[V] {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}

	cache := &MemoryCache[V]{
		data: make(map[string]cacheItem[V]),
		now:  time.Now,
		done: make(chan struct{}),
	}

	go cache.cleanupExpired(cleanupInterval)

	return cache
}

// NewRegionCache creates the cache used for credential -> region lookups.
func NewRegionCache() *MemoryCache[domain.RegionInfo] {
	return NewMemoryCache[domain.RegionInfo](10 * time.Minute)
}

// Get retrieves a value from the cache
func (c *MemoryCache[V]) Get(ctx context.Context, key string) (V, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var zero V
	item, exists := c.data[key]
	if !exists || c.now().After(item.Expiration) {
		return zero, domain.ErrCacheMiss
	}

	return item.Value, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem[V]{
		Value:      value,
		Expiration: c.now().Add(ttl),
	}

	return nil
}

// Close stops the cleanup goroutine.
func (c *MemoryCache[V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *MemoryCache[V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

// purge removes every expired entry
func (c *MemoryCache[V]) purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, item := range c.data {
		if now.After(item.Expiration) {
			delete(c.data, key)
		}
	}
}

// Size returns the number of stored entries, expired ones included until purged
func (c *MemoryCache[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
