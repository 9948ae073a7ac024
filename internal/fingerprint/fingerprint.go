// Package fingerprint computes content-addressed file digests for
// deduplication. The digest is a pure function of file bytes: identical
// content yields the identical fingerprint regardless of path or mtime.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// blockSize is the read granularity when streaming large files.
const blockSize = 8192

// File streams the file through SHA-256 and returns the lowercase hex digest.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Text returns the hex SHA-256 of a string. Used as the embedding-cache key.
func Text(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Cache is a per-run path-to-digest cache. It is scoped to one pipeline run
// and safe for concurrent use under the worker-pool mode.
type Cache struct {
	mu sync.Mutex
	m  map[string]string
}

// NewCache returns an empty fingerprint cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]string)}
}

// File returns the digest for path, computing and caching it on first use.
func (c *Cache) File(path string) (string, error) {
	c.mu.Lock()
	if h, ok := c.m[path]; ok {
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	h, err := File(path)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.m[path] = h
	c.mu.Unlock()
	return h, nil
}

// Len returns the number of cached digests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]string)
}
