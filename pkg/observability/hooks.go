// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about graph population, resource loads, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which avoids import cycles
// and keeps the engine free of any particular metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPopulateHooks(&myPopulateHooks{})
//	    observability.SetLoadHooks(&myLoadHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Load().OnLoadStart(ctx, url)
//	// ... fetch ...
//	observability.Load().OnLoadComplete(ctx, url, size, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Populate Hooks
// =============================================================================

// PopulateHooks receives events from graph population.
type PopulateHooks interface {
	OnPopulateStart(ctx context.Context, seeds int)
	OnPopulateComplete(ctx context.Context, assets, relations, warnings int, duration time.Duration)
}

// =============================================================================
// Load Hooks
// =============================================================================

// LoadHooks receives events from the load collaborator.
type LoadHooks interface {
	// OnLoadStart records an outgoing load of url.
	OnLoadStart(ctx context.Context, url string)

	// OnLoadComplete records the outcome of a load. size is 0 on failure.
	OnLoadComplete(ctx context.Context, url string, size int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, backend string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, backend string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, backend string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPopulateHooks is a no-op implementation of PopulateHooks.
type NoopPopulateHooks struct{}

func (NoopPopulateHooks) OnPopulateStart(context.Context, int)                              {}
func (NoopPopulateHooks) OnPopulateComplete(context.Context, int, int, int, time.Duration) {}

// NoopLoadHooks is a no-op implementation of LoadHooks.
type NoopLoadHooks struct{}

func (NoopLoadHooks) OnLoadStart(context.Context, string)                                  {}
func (NoopLoadHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	populateHooks PopulateHooks = NoopPopulateHooks{}
	loadHooks     LoadHooks     = NoopLoadHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPopulateHooks registers custom populate hooks.
// This should be called once at application startup.
func SetPopulateHooks(h PopulateHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		populateHooks = h
	}
}

// SetLoadHooks registers custom load hooks.
func SetLoadHooks(h LoadHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		loadHooks = h
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

// Populate returns the registered populate hooks.
func Populate() PopulateHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return populateHooks
}

// Load returns the registered load hooks.
func Load() LoadHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return loadHooks
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
	populateHooks = NoopPopulateHooks{}
	loadHooks = NoopLoadHooks{}
	cacheHooks = NoopCacheHooks{}
}
