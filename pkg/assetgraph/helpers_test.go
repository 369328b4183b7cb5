package assetgraph_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/all"
	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/loader"
)

// memLoader serves a fixed set of URLs and counts the loads per URL.
type memLoader struct {
	mu    sync.Mutex
	files map[string]string
	calls map[string]int
}

func newMemLoader(files map[string]string) *memLoader {
	return &memLoader{files: files, calls: make(map[string]int)}
}

func (m *memLoader) Load(_ context.Context, url string) (*loader.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[url]++
	body, ok := m.files[url]
	if !ok {
		return nil, &agerrors.LoadError{URL: url, Status: 404, Message: "Not Found"}
	}
	return &loader.Resource{Data: []byte(body)}, nil
}

func (m *memLoader) count(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newGraph(t *testing.T, files map[string]string) (*assetgraph.Graph, *memLoader) {
	t.Helper()
	l := newMemLoader(files)
	g, err := assetgraph.New(assetgraph.Options{
		Root:     "http://x/",
		Registry: all.Registry(),
		Loader:   l,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return g, l
}

// populate loads the seeds and populates the graph from them.
func populate(t *testing.T, g *assetgraph.Graph, seeds ...string) []*assetgraph.Asset {
	t.Helper()
	ctx := context.Background()
	assets, err := g.LoadAssets(ctx, seeds...)
	if err != nil {
		t.Fatalf("LoadAssets() error: %v", err)
	}
	if err := g.Populate(ctx, assetgraph.PopulateOptions{}); err != nil {
		t.Fatalf("Populate() error: %v", err)
	}
	return assets
}

func mustText(t *testing.T, a *assetgraph.Asset) string {
	t.Helper()
	text, err := a.Text()
	if err != nil {
		t.Fatalf("Text() error: %v", err)
	}
	return text
}

func standalone(t *testing.T, cfg assetgraph.Config) *assetgraph.Asset {
	t.Helper()
	a, err := assetgraph.NewAsset(all.Registry(), cfg)
	if err != nil {
		t.Fatalf("NewAsset() error: %v", err)
	}
	return a
}
