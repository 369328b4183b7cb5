package cache

// ScopedKeyer wraps a Keyer with a prefix so several graphs can share one
// backend without seeing each other's entries.
//
// Example usage:
//
//	// Entries for one site only
//	siteKeyer := NewScopedKeyer(NewDefaultKeyer(), "site:example.com:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ResourceKey generates a prefixed key for a loaded resource.
func (k *ScopedKeyer) ResourceKey(url string) string {
	return k.prefix + k.inner.ResourceKey(url)
}
