package io

import (
	"context"
	"image"

	"github.com/matzehuels/tokenforge/pkg/cache"
	"github.com/matzehuels/tokenforge/pkg/observability"
)

const layerKeyType = "layer"

// LayerLoader decodes layer files through a shared cache.
type LayerLoader struct {
	cache cache.Cache
}

// NewLayerLoader creates a loader backed by c. A nil cache disables caching.
func NewLayerLoader(c cache.Cache) *LayerLoader {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &LayerLoader{cache: c}
}

// Load returns the decoded image for path, decoding it on first use.
// Concurrent first loads of the same path may both decode; the result is
// identical either way.
func (l *LayerLoader) Load(path string) (*image.NRGBA, error) {
	ctx := context.Background()
	hooks := observability.Cache()

	if img, ok := l.cache.Get(path); ok {
		hooks.OnCacheHit(ctx, layerKeyType)
		return img, nil
	}
	hooks.OnCacheMiss(ctx, layerKeyType)

	img, err := ImportPNG(path)
	if err != nil {
		return nil, err
	}
	l.cache.Set(path, img)
	hooks.OnCacheSet(ctx, layerKeyType, len(img.Pix))
	return img, nil
}

// Cached returns the number of decoded layers held by the cache.
func (l *LayerLoader) Cached() int {
	return l.cache.Len()
}
