// Package assetgraph models a web site as a graph of assets connected by
// typed relations.
//
// # Assets
//
// An [Asset] is one unit of content: a page, a stylesheet, a script, an
// image. Its content lives in up to three representations (raw bytes,
// decoded text and a kind-specific tree). Setting one representation
// invalidates the others, which are derived again on the next read, and
// marks the asset dirty.
//
// Inline assets (a <style> block, a data: URL) have no URL. When their
// content changes they write themselves back into the owning asset.
//
// # Relations
//
// A [Relation] is a reference from one asset to another, materialized at
// an attachment point inside the owner's tree. Relations can be attached,
// detached and inlined, subject to the capabilities of their type.
//
// # Kinds
//
// Parsing, serialization and relation discovery are delegated to [Kind]
// and [RelationType] tables held in a [Registry]. The kinds subpackages
// provide Html, Css, JavaScript, Json, SourceMap, ApplicationManifest,
// CacheManifest, SrcSet and the text and binary kinds; kinds/all assembles
// them.
//
// # Population
//
// [Graph.Populate] crawls the graph breadth-first from seed assets,
// loading targets through a [loader.Loader]:
//
//	g, _ := assetgraph.New(assetgraph.Options{Root: "http://example.com/", Registry: all.Registry()})
//	g.LoadAssets(ctx, "index.html")
//	g.Populate(ctx, assetgraph.PopulateOptions{})
//	for _, css := range g.FindAssets(assetgraph.AssetQuery{Type: "Css"}) {
//	    fmt.Println(css.URL())
//	}
//
// # Errors
//
// Content problems (failed loads, parse errors, malformed constructs) are
// returned by standalone assets and recorded as warnings by graph members.
// API misuse is always returned. See [Graph.Warn] and [Graph.OnWarn].
package assetgraph
