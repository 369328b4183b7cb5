// Package loader fetches the raw bytes of assets.
//
// # Overview
//
// The graph never performs I/O itself; it asks a [Loader] for the bytes at
// a canonical URL. This package provides the standard implementations:
//
//   - [FileLoader]: file: URLs, read from the local filesystem
//   - [HTTPLoader]: http: and https: URLs, with retry on transient failures
//   - [DataLoader]: data: URLs, decoded in memory
//   - [Mux]: dispatches on the URL scheme
//   - [Cached]: fronts another Loader with an in-memory LRU and a
//     persistent [cache.Cache]
//
// Failures are reported as [errors.LoadError] values carrying the HTTP status
// when there is one. Timeouts are the loader's responsibility: set them on
// the http.Client or via the context.
//
// Every Loader must be safe for concurrent use; the graph issues several
// loads in parallel during population.
package loader
