// Package observability provides hooks for metrics, progress reporting, and
// tracing of generation runs.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about token generation and layer caching.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetGenerationHooks(&myProgressHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Generation().OnTokenStart(ctx, id)
//	// ... sample, reserve, composite, write ...
//	observability.Generation().OnTokenComplete(ctx, id, attempts, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Rejection reasons passed to OnAttemptRejected.
const (
	RejectConstraint = "constraint" // combination contained a forbidden pair
	RejectCollision  = "collision"  // pattern key already reserved
)

// =============================================================================
// Generation Hooks
// =============================================================================

// GenerationHooks receives events from the token generator.
// Implementations are called concurrently from every worker.
type GenerationHooks interface {
	// Run events
	OnRunStart(ctx context.Context, runID string, count int)
	OnRunComplete(ctx context.Context, runID string, emitted, failed int, duration time.Duration)

	// Token events
	OnTokenStart(ctx context.Context, id int)
	OnAttemptRejected(ctx context.Context, id int, reason string)
	OnTokenComplete(ctx context.Context, id int, attempts int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the decoded-layer cache.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write of size bytes.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopGenerationHooks is a no-op implementation of GenerationHooks.
type NoopGenerationHooks struct{}

func (NoopGenerationHooks) OnRunStart(context.Context, string, int)                         {}
func (NoopGenerationHooks) OnRunComplete(context.Context, string, int, int, time.Duration)  {}
func (NoopGenerationHooks) OnTokenStart(context.Context, int)                               {}
func (NoopGenerationHooks) OnAttemptRejected(context.Context, int, string)                  {}
func (NoopGenerationHooks) OnTokenComplete(context.Context, int, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	generationHooks GenerationHooks = NoopGenerationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetGenerationHooks registers custom generation hooks.
// This should be called once at application startup before any run starts.
func SetGenerationHooks(h GenerationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		generationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Generation returns the registered generation hooks.
func Generation() GenerationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return generationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	generationHooks = NoopGenerationHooks{}
	cacheHooks = NoopCacheHooks{}
}
