package loader

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/assetgraph/pkg/cache"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// CacheOptions configures a [Cached] loader.
type CacheOptions struct {
	// Size is the number of resources kept in memory (default 512).
	Size int
	// TTL is the lifetime of persisted entries (default cache.DefaultTTL).
	TTL time.Duration
	// Keyer derives backend keys (default cache.NewDefaultKeyer()).
	Keyer cache.Keyer
	// Refresh bypasses reads from both tiers; results are still stored.
	Refresh bool
}

// Cached fronts a Loader with an in-memory LRU and a persistent backend.
// data: and file: URLs bypass the persistent tier since reading them is
// as cheap as reading the cache.
type Cached struct {
	next    Loader
	backend cache.Cache
	mem     *lru.Cache[string, *Resource]
	opts    CacheOptions
}

// NewCached wraps next. A nil backend disables persistence.
func NewCached(next Loader, backend cache.Cache, opts CacheOptions) (*Cached, error) {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	if opts.Size <= 0 {
		opts.Size = 512
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	mem, err := lru.New[string, *Resource](opts.Size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, backend: backend, mem: mem, opts: opts}, nil
}

// Load returns the cached resource for url or loads and stores it.
func (c *Cached) Load(ctx context.Context, url string) (*Resource, error) {
	if !c.opts.Refresh {
		if res, ok := c.mem.Get(url); ok {
			return res, nil
		}
		if res, ok := c.fromBackend(ctx, url); ok {
			c.mem.Add(url, res)
			return res, nil
		}
	}

	res, err := c.next.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	c.mem.Add(url, res)
	if c.persistent(url) {
		if data, err := json.Marshal(res); err == nil {
			_ = c.backend.Set(ctx, c.opts.Keyer.ResourceKey(url), data, c.opts.TTL)
		}
	}
	return res, nil
}

// Purge drops every in-memory entry.
func (c *Cached) Purge() { c.mem.Purge() }

func (c *Cached) fromBackend(ctx context.Context, url string) (*Resource, bool) {
	if !c.persistent(url) {
		return nil, false
	}
	data, ok, err := c.backend.Get(ctx, c.opts.Keyer.ResourceKey(url))
	if err != nil || !ok {
		return nil, false
	}
	var res Resource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *Cached) persistent(url string) bool {
	switch urltools.Scheme(url) {
	case "http", "https":
		return true
	}
	return false
}
