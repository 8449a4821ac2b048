// Package cache keeps decoded layer images in memory for the duration of a
// run.
//
// Every token composites one file per category, and the same files are used
// by thousands of tokens. Decoding each PNG once and sharing the result
// read-only across workers removes most of the per-token I/O.
//
// Cached images must never be mutated by callers: the compositor copies the
// base layer before blending onto it.
package cache

import (
	"image"
	"sync"
)

// Cache stores decoded images keyed by file path.
type Cache interface {
	// Get returns the cached image for key, if present.
	Get(key string) (*image.NRGBA, bool)

	// Set stores img under key. Implementations may decline to store it.
	Set(key string, img *image.NRGBA)

	// Len returns the number of cached entries.
	Len() int

	// Close releases cached entries.
	Close() error
}

// MemoryCache is a concurrency-safe in-process cache with an optional entry
// limit. Once the limit is reached new entries are not stored; layer sets are
// small enough that eviction has not been needed.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*image.NRGBA
	maxEntries int
}

// NewMemoryCache creates a cache holding at most maxEntries images.
// A maxEntries of 0 means no limit.
func NewMemoryCache(maxEntries int) Cache {
	return &MemoryCache{
		entries:    make(map[string]*image.NRGBA),
		maxEntries: maxEntries,
	}
}

// Get retrieves an image from the cache.
func (c *MemoryCache) Get(key string) (*image.NRGBA, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.entries[key]
	return img, ok
}

// Set stores an image in the cache unless the entry limit is reached.
func (c *MemoryCache) Set(key string, img *image.NRGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		return
	}
	c.entries[key] = img
}

// Len returns the number of cached images.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close drops all entries.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*image.NRGBA)
	return nil
}

// Ensure MemoryCache implements Cache.
var _ Cache = (*MemoryCache)(nil)
