package memory

import (
	"sync"
	"time"

	"github.com/zunokit/zunogo/pkg/cache"
)

var _ cache.KeyValueCache[any] = (*keyValueCache[any])(nil)

// keyValueCache provides a concurrency-safe in-memory key/value cache implementation.
type keyValueCache[T any] struct {
	config keyValueCacheConfig

	// valuesMu protects values from concurrent access.
	valuesMu sync.RWMutex
	// values holds the cached values.
	values map[string]cacheValue[T]
}

// cacheValue wraps cached values with a cachedAt for later comparison against
// the configured TTL.
type cacheValue[T any] struct {
	value    T
	cachedAt time.Time
}

// NewKeyValueCache creates a new keyValueCache with the configuration generated
// by the given option functions.
func NewKeyValueCache[T any](opts ...KeyValueCacheOptionFn) (*keyValueCache[T], error) {
	config := DefaultKeyValueCacheConfig

	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &keyValueCache[T]{
		values: make(map[string]cacheValue[T]),
		config: config,
	}, nil
}

// Get retrieves the value from the cache with the given key. A value which has
// outlived the configured TTL is reported as absent.
func (c *keyValueCache[T]) Get(key string) (T, bool) {
	var zero T
	c.valuesMu.RLock()
	defer c.valuesMu.RUnlock()

	cachedValue, exists := c.values[key]
	if !exists {
		return zero, false
	}

	isTTLEnabled := c.config.ttl > 0
	isCacheValueExpired := time.Since(cachedValue.cachedAt) > c.config.ttl
	if isTTLEnabled && isCacheValueExpired {
		// Not pruning here keeps Get cheap under the read lock; the next Set
		// for this key overwrites the stale value, and maxKeys eviction will
		// eventually reclaim keys that are never set again.
		return zero, false
	}

	return cachedValue.value, true
}

// Set adds or updates the value in the cache for the given key.
func (c *keyValueCache[T]) Set(key string, value T) {
	c.valuesMu.Lock()
	defer c.valuesMu.Unlock()

	c.values[key] = cacheValue[T]{
		value:    value,
		cachedAt: time.Now(),
	}

	// Evict after adding the new key/value.
	c.evict()
}

// Delete removes a value from the cache.
func (c *keyValueCache[T]) Delete(key string) {
	c.valuesMu.Lock()
	defer c.valuesMu.Unlock()

	delete(c.values, key)
}

// Clear removes all values from the cache.
func (c *keyValueCache[T]) Clear() {
	c.valuesMu.Lock()
	defer c.valuesMu.Unlock()

	c.values = make(map[string]cacheValue[T])
}

// Keys returns the keys of all values currently held, in no particular order.
func (c *keyValueCache[T]) Keys() []string {
	c.valuesMu.RLock()
	defer c.valuesMu.RUnlock()

	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of values currently held, including any which have
// outlived the TTL but have not been evicted yet.
func (c *keyValueCache[T]) Len() int {
	c.valuesMu.RLock()
	defer c.valuesMu.RUnlock()

	return len(c.values)
}

// evict removes the oldest item from the cache when the configured maxKeys
// has been exceeded. It MUST be called with valuesMu write-locked.
func (c *keyValueCache[T]) evict() {
	isMaxKeysConfigured := c.config.maxKeys > 0
	cacheMaxKeysReached := int64(len(c.values)) > c.config.maxKeys
	if !isMaxKeysConfigured || !cacheMaxKeysReached {
		return
	}

	var (
		first      = true
		oldestKey  string
		oldestTime time.Time
	)
	for key, value := range c.values {
		if first || value.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = value.cachedAt
		}
		first = false
	}
	delete(c.values, oldestKey)
}
