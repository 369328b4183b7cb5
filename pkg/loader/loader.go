package loader

import (
	"context"
	"errors"
	"time"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/observability"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// ErrUnsupportedScheme is returned by [Mux] for URLs with no registered loader.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// Resource is the result of a successful load.
type Resource struct {
	// URL is the final URL after redirects. Empty means unchanged.
	URL string `json:"url,omitempty"`

	// Data holds the raw bytes.
	Data []byte `json:"data"`

	// ContentType is the media type without parameters, if known.
	ContentType string `json:"content_type,omitempty"`

	// Charset is the declared encoding (Content-Type charset parameter or
	// data: URL charset), if any.
	Charset string `json:"charset,omitempty"`
}

// Loader retrieves raw bytes for a canonical URL.
//
// Load must be safe for concurrent use and should respect ctx cancellation.
// Failures should be *errors.LoadError values.
type Loader interface {
	Load(ctx context.Context, url string) (*Resource, error)
}

// Func adapts a function to the Loader interface.
type Func func(ctx context.Context, url string) (*Resource, error)

// Load calls f.
func (f Func) Load(ctx context.Context, url string) (*Resource, error) { return f(ctx, url) }

// Mux dispatches loads by URL scheme.
type Mux struct {
	loaders map[string]Loader
}

// NewMux creates a Mux with no schemes registered.
func NewMux() *Mux {
	return &Mux{loaders: make(map[string]Loader)}
}

// Default returns a Mux serving file:, http:, https: and data: URLs.
func Default(client *HTTPLoader) *Mux {
	if client == nil {
		client = NewHTTPLoader(nil, nil)
	}
	m := NewMux()
	m.Handle("file", FileLoader{})
	m.Handle("data", DataLoader{})
	m.Handle("http", client)
	m.Handle("https", client)
	return m
}

// Handle registers l for scheme (without the colon).
func (m *Mux) Handle(scheme string, l Loader) {
	m.loaders[scheme] = l
}

// Load dispatches to the loader registered for the scheme of url.
func (m *Mux) Load(ctx context.Context, url string) (*Resource, error) {
	scheme := urltools.Scheme(url)
	l, ok := m.loaders[scheme]
	if !ok {
		return nil, &agerrors.LoadError{URL: url, Message: "no loader for scheme " + scheme, Cause: ErrUnsupportedScheme}
	}

	start := time.Now()
	observability.Load().OnLoadStart(ctx, url)
	res, err := l.Load(ctx, url)
	size := 0
	if res != nil {
		size = len(res.Data)
	}
	observability.Load().OnLoadComplete(ctx, url, size, time.Since(start), err)
	return res, err
}
