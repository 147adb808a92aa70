// Package cache keeps token metadata for the life of the process.
package cache

import (
	"time"

	"chain_reader/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

// MetadataCache is an insert-once store of token metadata keyed by entity.MetadataKey.
// Positive entries never expire. Negative entries (nil) expire after negativeTTL when it is set.
type MetadataCache struct {
	store       *cache.Cache
	negativeTTL time.Duration
}

// NewMetadataCache creates an empty cache. negativeTTL <= 0 keeps negative entries forever.
func NewMetadataCache(negativeTTL time.Duration) *MetadataCache {
	cleanup := time.Duration(0)
	if negativeTTL > 0 {
		cleanup = negativeTTL
	}
	return &MetadataCache{
		store:       cache.New(cache.NoExpiration, cleanup),
		negativeTTL: negativeTTL,
	}
}

// Get returns the cached value and whether the key is present. A present nil value is a negative entry.
func (c *MetadataCache) Get(key string) (*entity.TokenMetadata, bool) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	md, _ := v.(*entity.TokenMetadata)
	return md, true
}

// Add stores value unless key is already present. It reports whether the value was stored.
func (c *MetadataCache) Add(key string, value *entity.TokenMetadata) bool {
	ttl := cache.NoExpiration
	if value == nil && c.negativeTTL > 0 {
		ttl = c.negativeTTL
	}
	return c.store.Add(key, value, ttl) == nil
}

// Len returns the number of entries, including expired ones not yet cleaned up.
func (c *MetadataCache) Len() int {
	return c.store.ItemCount()
}
