// Package nodelink renders asset graphs as node-link diagrams.
//
// # Overview
//
// Every non-inline asset becomes a box and every relation an arrow from
// the asset that contains the reference to its target. Relations found
// in inline content (a <style> block, a style attribute) are drawn from
// the page that embeds them unless [Options.Inline] is set.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [Render] picks the output by format name (dot, svg, pdf, png).
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
