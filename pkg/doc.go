// Package pkg provides the libraries behind assetgraph.
//
// # Overview
//
// Assetgraph models a web site or app as a graph: every file (page,
// stylesheet, script, image, manifest) is an asset, and every reference
// from one asset to another is a relation. The pkg directory is organized
// into three areas:
//
//  1. [assetgraph] - The graph model, asset kinds and population
//  2. Infrastructure - [loader], [cache], [errors], [observability], [urltools]
//  3. Outputs - [render], [io], [api]
//
// # Architecture
//
// The typical data flow:
//
//	Seed URLs or paths
//	         ↓
//	    [loader] package (file:, data:, http(s): with caching and retries)
//	         ↓
//	    [assetgraph] package (parse, discover relations, populate)
//	         ↓
//	    [render/nodelink], [io], [api] (DOT/SVG, JSON, HTTP inspection)
//
// # Quick Start
//
// Populate a graph from a page and list what it references:
//
//	import (
//	    "context"
//
//	    "github.com/matzehuels/assetgraph/pkg/assetgraph"
//	    "github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/all"
//	)
//
//	g, _ := assetgraph.New(assetgraph.Options{
//	    Root:     "https://example.com/",
//	    Registry: all.Registry(),
//	})
//	ctx := context.Background()
//	g.LoadAssets(ctx, "index.html")
//	g.Populate(ctx, assetgraph.PopulateOptions{})
//
//	for _, r := range g.FindRelations(assetgraph.RelationQuery{}, false) {
//	    fmt.Println(r.Type(), r.From().URL(), "->", r.To().URL())
//	}
//
// Assets can be edited through any of their representations (raw bytes,
// decoded text or parsed tree); references in the assets that point at
// them are rewritten when an asset moves.
//
// [assetgraph]: github.com/matzehuels/assetgraph/pkg/assetgraph
// [loader]: github.com/matzehuels/assetgraph/pkg/loader
// [cache]: github.com/matzehuels/assetgraph/pkg/cache
// [errors]: github.com/matzehuels/assetgraph/pkg/errors
// [observability]: github.com/matzehuels/assetgraph/pkg/observability
// [urltools]: github.com/matzehuels/assetgraph/pkg/urltools
// [render]: github.com/matzehuels/assetgraph/pkg/render
// [render/nodelink]: github.com/matzehuels/assetgraph/pkg/render/nodelink
// [io]: github.com/matzehuels/assetgraph/pkg/io
// [api]: github.com/matzehuels/assetgraph/pkg/api
package pkg
