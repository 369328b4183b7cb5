// Package text provides the plain text kind and the image and font kinds
// that carry no references.
package text

import "github.com/matzehuels/assetgraph/pkg/assetgraph"

func identity(s string) (any, error) { return s, nil }

func serialize(tree any) (string, error) {
	s, _ := tree.(string)
	return s, nil
}

// Text is plain text. Its tree is the text itself.
var Text = &assetgraph.Kind{
	Name:            "Text",
	ContentType:     "text/plain",
	Extensions:      []string{".txt", ".text"},
	DefaultEncoding: "utf-8",
	Parse:           identity,
	Serialize:       serialize,
}

// Svg is kept as text; references inside SVG documents are not followed.
var Svg = &assetgraph.Kind{
	Name:            "Svg",
	ContentType:     "image/svg+xml",
	Extensions:      []string{".svg"},
	DefaultEncoding: "utf-8",
	Parse:           identity,
	Serialize:       serialize,
}

func binary(name, contentType string, exts ...string) *assetgraph.Kind {
	return &assetgraph.Kind{Name: name, ContentType: contentType, Extensions: exts, Binary: true}
}

// Binary image and font kinds.
var (
	Png   = binary("Png", "image/png", ".png")
	Jpeg  = binary("Jpeg", "image/jpeg", ".jpg", ".jpeg")
	Gif   = binary("Gif", "image/gif", ".gif")
	Webp  = binary("Webp", "image/webp", ".webp")
	Ico   = binary("Ico", "image/x-icon", ".ico")
	Woff  = binary("Woff", "font/woff", ".woff")
	Woff2 = binary("Woff2", "font/woff2", ".woff2")
)

// Kinds lists the kinds of this package.
func Kinds() []*assetgraph.Kind {
	return []*assetgraph.Kind{Text, Svg, Png, Jpeg, Gif, Webp, Ico, Woff, Woff2}
}

// IsImage reports whether k is one of the image kinds.
func IsImage(k *assetgraph.Kind) bool {
	switch k {
	case Svg, Png, Jpeg, Gif, Webp, Ico:
		return true
	}
	return false
}
