// Package html implements the Html kind on top of golang.org/x/net/html.
//
// Documents (text containing a doctype or an <html> tag) are parsed as
// full documents; anything else is parsed as a fragment in body context,
// which is what inline Html (noscript, template and conditional comment
// bodies) needs. Serialization goes through html.Render, so the round trip
// is structural: implied elements are made explicit and attribute quoting
// is normalised.
package html

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// Document is the tree of an Html asset.
type Document struct {
	// Root is a DocumentNode. For fragments its children are the
	// top-level nodes of the fragment.
	Root     *html.Node
	Fragment bool
}

var documentMarker = regexp.MustCompile(`(?i)<!doctype\s|<html[\s>]`)

// IsDocument reports whether text is parsed as a full document.
func IsDocument(text string) bool { return documentMarker.MatchString(text) }

// Parse parses text as a document or a fragment.
func Parse(text string) (*Document, error) {
	if IsDocument(text) {
		root, err := html.Parse(strings.NewReader(text))
		if err != nil {
			return &Document{Root: &html.Node{Type: html.DocumentNode}}, err
		}
		return &Document{Root: root}, nil
	}
	return ParseFragment(text)
}

// ParseFragment parses text in body context.
func ParseFragment(text string) (*Document, error) {
	root := &html.Node{Type: html.DocumentNode}
	nodes, err := html.ParseFragment(strings.NewReader(text), &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{Root: root, Fragment: true}, err
}

// Serialize renders the document.
func Serialize(doc *Document) (string, error) {
	var buf bytes.Buffer
	for c := doc.Root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

var (
	metaTag         = regexp.MustCompile(`(?i)<meta[^>]+>`)
	httpEquivCT     = regexp.MustCompile(`(?i)\bhttp-equiv=(["']|)\s*Content-Type\s*["']?`)
	contentCharset  = regexp.MustCompile(`(?i)\bcontent=(["']|)\s*text/html;\s*charset=([\w-]*)`)
	simpleCharset   = regexp.MustCompile(`(?i)\bcharset=(["']|)\s*([\w-]*)`)
	conditionalOpen = regexp.MustCompile(`^\[if\s*([^\]]*)\]>\s*(?:<!)?$`)
	conditionalEnd  = regexp.MustCompile(`^\s*<!\[endif\]\s*$`)
	conditionalBody = regexp.MustCompile(`^\[if\s*([^\]]*)\]>([\s\S]*)<!\[endif\]$`)
)

// detectCharset finds the charset declared by a <meta> tag. The last
// declaration wins.
func detectCharset(sample []byte) string {
	var found string
	for _, tag := range metaTag.FindAll(sample, -1) {
		if httpEquivCT.Match(tag) {
			if m := contentCharset.FindSubmatch(tag); m != nil {
				found = string(m[2])
			}
			continue
		}
		if m := simpleCharset.FindSubmatch(tag); m != nil {
			found = string(m[2])
		}
	}
	return found
}

// Kind is the Html kind.
var Kind = &assetgraph.Kind{
	Name:            "Html",
	ContentType:     "text/html",
	AltContentTypes: []string{"application/xhtml+xml"},
	Extensions:      []string{".html", ".htm", ".xhtml", ".shtml", ".template"},
	DefaultEncoding: "utf-8",
	Parse:           func(text string) (any, error) { return Parse(text) },
	Serialize: func(tree any) (string, error) {
		doc, err := document(tree)
		if err != nil {
			return "", err
		}
		return Serialize(doc)
	},
	FindRelations:  findRelations,
	DetectEncoding: detectCharset,
}

func document(tree any) (*Document, error) {
	d, ok := tree.(*Document)
	if !ok || d == nil || d.Root == nil {
		return nil, fmt.Errorf("html: unexpected tree %T", tree)
	}
	return d, nil
}

// Kinds lists the kinds of this package.
func Kinds() []*assetgraph.Kind { return []*assetgraph.Kind{Kind} }
