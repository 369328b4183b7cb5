// Package api serves a read-only HTTP view of an asset graph.
//
// # Routes
//
//	GET /healthz                                  liveness check
//	GET /assets?type=&url=&inline=&loaded=        list assets
//	GET /assets/{id}                              one asset with its relations
//	GET /assets/{id}/text                         asset content as text
//	GET /assets/{id}/raw                          asset content as bytes
//	GET /relations?type=&from=&to=&unresolved=    list relations
//	GET /warnings                                 diagnostics recorded so far
//	GET /graph?format=dot|svg                     node-link diagram
//
// Asset references in query parameters accept either an asset ID or a
// canonical URL.
//
// # Concurrency
//
// A [Graph] is not safe for concurrent use, so [Server] serializes
// handlers on a read-write lock. Reading the text or tree of an asset may
// cache a derived representation, so content handlers take the write lock.
// Callers that mutate the graph while serving must go through
// [Server.Update].
package api
