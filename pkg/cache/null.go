package cache

import "image"

// NullCache is a no-op cache that never stores anything.
// Useful for testing or when caching should be disabled.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always returns a cache miss.
func (c *NullCache) Get(key string) (*image.NRGBA, bool) {
	return nil, false
}

// Set does nothing.
func (c *NullCache) Set(key string, img *image.NRGBA) {}

// Len always returns 0.
func (c *NullCache) Len() int {
	return 0
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

// Ensure NullCache implements Cache.
var _ Cache = (*NullCache)(nil)
