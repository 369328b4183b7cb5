// Package all assembles the default registry of kinds and relation types.
package all

import (
	"sync"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/cachemanifest"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/css"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/html"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/js"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/json"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/srcset"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/text"
)

var (
	once     sync.Once
	registry *assetgraph.Registry
)

// Registry returns the shared default registry. It must not be modified;
// use [New] for a registry that can be extended.
func Registry() *assetgraph.Registry {
	once.Do(func() { registry = New() })
	return registry
}

// New builds a fresh registry with every built-in kind. Unknown textual
// content falls back to Text, unknown binary content to the generic Asset
// kind.
func New() *assetgraph.Registry {
	r := assetgraph.NewRegistry()
	// Json registers before SourceMap so it owns application/json.
	r.MustRegister(html.Kinds(), html.Relations())
	r.MustRegister(css.Kinds(), css.Relations())
	r.MustRegister(js.Kinds(), js.Relations())
	r.MustRegister(json.Kinds(), json.Relations())
	r.MustRegister(cachemanifest.Kinds(), cachemanifest.Relations())
	r.MustRegister(srcset.Kinds(), srcset.Relations())
	r.MustRegister(text.Kinds(), nil)
	if err := r.SetFallback(assetgraph.Generic.Name, text.Text.Name); err != nil {
		panic(err)
	}
	return r
}
