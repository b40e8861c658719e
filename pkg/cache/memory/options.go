package memory

import (
	"time"

	"github.com/zunokit/zunogo/pkg/cache"
)

// DefaultKeyValueCacheConfig is an unbounded cache without TTL expiry.
var DefaultKeyValueCacheConfig = keyValueCacheConfig{}

// keyValueCacheConfig holds the tunables of a keyValueCache.
type keyValueCacheConfig struct {
	// maxKeys is the maximum number of keys the cache holds before evicting
	// the oldest key. Zero disables eviction.
	maxKeys int64
	// ttl is the duration after which a cached value is considered stale.
	// Zero disables TTL expiry.
	ttl time.Duration
}

// KeyValueCacheOptionFn mutates the cache config at construction time.
type KeyValueCacheOptionFn func(*keyValueCacheConfig) error

// Validate checks that the configuration is self-consistent.
func (cfg *keyValueCacheConfig) Validate() error {
	if cfg.maxKeys < 0 {
		return cache.ErrCacheConfigValidation.Wrapf("maxKeys must be >= 0, got %d", cfg.maxKeys)
	}
	if cfg.ttl < 0 {
		return cache.ErrCacheConfigValidation.Wrapf("ttl must be >= 0, got %s", cfg.ttl)
	}
	return nil
}

// WithMaxKeys sets the maximum number of keys the cache holds before evicting
// the oldest key.
func WithMaxKeys(maxKeys int64) KeyValueCacheOptionFn {
	return func(cfg *keyValueCacheConfig) error {
		cfg.maxKeys = maxKeys
		return nil
	}
}

// WithTTL sets the duration after which cached values expire.
func WithTTL(ttl time.Duration) KeyValueCacheOptionFn {
	return func(cfg *keyValueCacheConfig) error {
		cfg.ttl = ttl
		return nil
	}
}
