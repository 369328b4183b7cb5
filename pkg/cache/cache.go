// Package cache stores loaded resources between runs.
//
// The graph loads every asset through a [loader.Loader]; wrapping that loader
// with a cache avoids re-fetching unchanged resources across invocations of
// the CLI. Three backends are provided:
//
//   - [FileCache]: one file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for multi-instance deployments
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that different deployments can scope
// their entries (see [NewScopedKeyer]).
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/assetgraph/pkg/observability"
)

// DefaultTTL is the lifetime of cached resources when none is configured.
const DefaultTTL = 24 * time.Hour

// Cache is a byte-oriented key/value store with per-entry expiration.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the data stored under key. The boolean is false on a miss
	// or an expired entry; err is reserved for backend failures.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for loaded resources.
type Keyer interface {
	// ResourceKey returns the key for the resource at the canonical url.
	ResourceKey(url string) string
}

// DefaultKeyer hashes the url into a fixed-length key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ResourceKey implements Keyer.
func (DefaultKeyer) ResourceKey(url string) string {
	return hashKey("resource", url)
}

// NullCache never stores anything. Every Get is a miss.
type NullCache struct{}

// NewNullCache creates a cache with caching disabled.
func NewNullCache() Cache { return NullCache{} }

// Get always reports a miss.
func (NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	observability.Cache().OnCacheMiss(ctx, "null")
	return nil, false, nil
}

// Set discards data.
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete is a no-op.
func (NullCache) Delete(context.Context, string) error { return nil }

// Close is a no-op.
func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
