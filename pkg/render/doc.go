// Package render converts rendered diagrams between output formats.
//
// [ToPDF] and [ToPNG] turn SVG produced by the [nodelink] renderer into
// other formats with the external rsvg-convert tool (from librsvg).
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [nodelink]: github.com/matzehuels/assetgraph/pkg/render/nodelink
package render
