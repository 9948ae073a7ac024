package embedder

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ragify/ragify/internal/fingerprint"
)

const defaultCacheSize = 10000

// Cache is an in-memory LRU of vectors keyed by fragment content hash.
// Identical fragments across files (boilerplate headers, repeated snippets)
// skip the provider entirely.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	c, err := lru.New[string, []float32](maxLen)
	if err != nil {
		c, _ = lru.New[string, []float32](defaultCacheSize)
	}
	return &Cache{cache: c}
}

// Key returns the cache key for a fragment text.
func (c *Cache) Key(text string) string {
	return fingerprint.Text(text)
}

// Get returns a copy of the cached vector so caller mutations cannot corrupt
// the cache.
func (c *Cache) Get(key string) ([]float32, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector, evicting the least recently used entry at capacity.
func (c *Cache) Set(key string, vector []float32) {
	c.cache.Add(key, vector)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Purge()
}
