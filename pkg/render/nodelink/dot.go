package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	"github.com/matzehuels/assetgraph/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the kind and load state to node labels and the
	// relation type to edges.
	Detailed bool

	// Inline draws inline assets as nodes of their own. When false their
	// relations are attributed to the nearest non-inline ancestor.
	Inline bool

	// Unresolved includes relations whose target is not loaded.
	Unresolved bool
}

// kindColors maps kind names to node fill colors.
var kindColors = map[string]string{
	"Html":                "#dbeafe",
	"Css":                 "#fce7f3",
	"JavaScript":          "#fef9c3",
	"Json":                "#e0e7ff",
	"SourceMap":           "#e0e7ff",
	"ApplicationManifest": "#e0e7ff",
	"CacheManifest":       "#ede9fe",
}

// ToDOT converts an asset graph to Graphviz DOT format for node-link
// visualization. The resulting DOT string can be rendered using
// [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Assets that are not loaded are drawn dashed and grey, assets that failed
// to load get a red outline.
func ToDOT(g *assetgraph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10, color=\"#555555\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	ids := nodeIDs(g, opts)
	for _, a := range g.FindAssets(assetgraph.AssetQuery{}) {
		id, ok := ids[a]
		if !ok {
			continue
		}
		label := fmtLabel(a, g.Root(), opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(fmtAttrs(a, label), ", "))
	}

	buf.WriteString("\n")
	type edge struct{ from, to, typ string }
	seen := make(map[edge]bool)
	for _, r := range g.FindRelations(assetgraph.RelationQuery{}, opts.Unresolved) {
		from, to := endpoint(r.From(), ids), endpoint(r.To(), ids)
		if from == "" || to == "" || from == to {
			continue
		}
		e := edge{from, to, r.Type()}
		if !opts.Detailed {
			e.typ = ""
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		var attrs []string
		if opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=%q", r.Type()))
		}
		if !r.IsResolved() {
			attrs = append(attrs, "style=dashed")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", from, to, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodeIDs names the assets that become nodes. Inline assets are numbered
// in insertion order so the output is stable across runs.
func nodeIDs(g *assetgraph.Graph, opts Options) map[*assetgraph.Asset]string {
	ids := make(map[*assetgraph.Asset]string)
	n := 0
	for _, a := range g.FindAssets(assetgraph.AssetQuery{}) {
		switch {
		case !a.IsInline():
			if a.URL() == "" {
				n++
				ids[a] = "seed:" + strconv.Itoa(n)
				continue
			}
			ids[a] = a.URL()
		case opts.Inline:
			n++
			ids[a] = "inline:" + strconv.Itoa(n)
		}
	}
	return ids
}

// endpoint returns the node an asset is drawn as.
func endpoint(a *assetgraph.Asset, ids map[*assetgraph.Asset]string) string {
	if a == nil {
		return ""
	}
	if id, ok := ids[a]; ok {
		return id
	}
	if anc := a.NonInlineAncestor(); anc != nil {
		return ids[anc]
	}
	return ""
}

func fmtLabel(a *assetgraph.Asset, root string, detailed bool) string {
	name := a.URL()
	switch {
	case a.IsInline():
		name = "inline " + a.Type()
	case root != "" && strings.HasPrefix(name, root):
		name = strings.TrimPrefix(name, root)
	}
	if !detailed {
		return name
	}

	parts := []string{"type: " + a.Type()}
	switch {
	case a.LoadError() != nil:
		parts = append(parts, "load failed")
	case !a.IsLoaded():
		parts = append(parts, "not loaded")
	case a.IsDirty():
		parts = append(parts, "dirty")
	}
	return name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(a *assetgraph.Asset, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case a.LoadError() != nil:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=\"#fee2e2\"", "color=\"#dc2626\"")
	case !a.IsLoaded():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=\"#555555\"")
	case a.IsInline():
		attrs = append(attrs, "style=\"rounded,filled,dotted\"")
		if c, ok := kindColors[a.Type()]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
		}
	default:
		if c, ok := kindColors[a.Type()]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
		}
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion. A scale of 2.0
// produces a 2x resolution image.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}

// Formats lists the output formats by file extension.
var Formats = []string{"dot", "svg", "pdf", "png"}

// Render produces the diagram in the given format.
func Render(ctx context.Context, g *assetgraph.Graph, format string, opts Options) ([]byte, error) {
	dot := ToDOT(g, opts)
	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return RenderSVG(ctx, dot)
	case "pdf":
		return RenderPDF(ctx, dot)
	case "png":
		return RenderPNG(ctx, dot, 2.0)
	}
	return nil, fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// IsFormat reports whether format is supported by [Render].
func IsFormat(format string) bool { return slices.Contains(Formats, format) }
