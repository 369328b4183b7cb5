// Package json implements the JSON based kinds: plain Json, SourceMap and
// ApplicationManifest (web app manifests).
//
// Documents are parsed tolerantly: comments and trailing commas are
// stripped with jsonc before decoding. Object keys are written back in
// sorted order.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// Document is the tree of the JSON kinds.
type Document struct {
	Value  any    // decoded value; numbers are json.Number
	Indent string // indentation detected in the source, "" for compact
	Prefix string // anti-XSSI prefix line of a source map
}

// Field addresses a string member of an object.
type Field struct {
	Obj map[string]any
	Key string
}

// Element addresses a string inside an array held by an object member.
type Element struct {
	Obj   map[string]any
	Key   string
	Index int
}

var (
	indentRe = regexp.MustCompile(`\n([ \t]+)\S`)
	xssiRe   = regexp.MustCompile(`^\)\]\}[^\n]*\n?`)
)

// Parse decodes text into a Document.
func Parse(text string) (*Document, error) {
	doc := &Document{}
	if m := xssiRe.FindString(text); m != "" {
		doc.Prefix = m
		text = text[len(m):]
	}
	if m := indentRe.FindStringSubmatch(text); m != nil {
		doc.Indent = m[1]
	}
	if strings.TrimSpace(text) == "" {
		return doc, nil
	}
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(text))))
	dec.UseNumber()
	if err := dec.Decode(&doc.Value); err != nil {
		return doc, fmt.Errorf("decode json: %w", err)
	}
	return doc, nil
}

// Serialize encodes doc back to text.
func Serialize(doc *Document) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(doc.Prefix)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if doc.Indent != "" {
		enc.SetIndent("", doc.Indent)
	}
	if err := enc.Encode(doc.Value); err != nil {
		return "", err
	}
	out := buf.String()
	if doc.Indent == "" {
		out = strings.TrimSuffix(out, "\n")
	}
	return out, nil
}

func document(tree any) (*Document, error) {
	d, ok := tree.(*Document)
	if !ok || d == nil {
		return nil, fmt.Errorf("json: unexpected tree %T", tree)
	}
	return d, nil
}

func newKind(name, contentType string, exts []string, find func(*Document, func(error)) []assetgraph.Descriptor) *assetgraph.Kind {
	k := &assetgraph.Kind{
		Name:            name,
		ContentType:     contentType,
		Extensions:      exts,
		DefaultEncoding: "utf-8",
		Parse:           func(text string) (any, error) { return Parse(text) },
		Serialize: func(tree any) (string, error) {
			d, err := document(tree)
			if err != nil {
				return "", err
			}
			return Serialize(d)
		},
	}
	if find != nil {
		k.FindRelations = func(tree any, report func(error)) []assetgraph.Descriptor {
			d, err := document(tree)
			if err != nil {
				report(err)
				return nil
			}
			return find(d, report)
		}
	}
	return k
}

// Kinds. Json owns the application/json content type; the others are
// chosen by extension or by the relation pointing at them.
var (
	Json                = newKind("Json", "application/json", []string{".json", ".topojson"}, nil)
	SourceMap           = newKind("SourceMap", "application/json", []string{".map"}, findSourceMap)
	ApplicationManifest = newKind("ApplicationManifest", "application/manifest+json", []string{".webmanifest"}, findManifest)
)

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func findSourceMap(d *Document, report func(error)) []assetgraph.Descriptor {
	root := object(d.Value)
	if root == nil {
		return nil
	}
	var out []assetgraph.Descriptor
	if s, ok := root["file"].(string); ok {
		out = append(out, assetgraph.Descriptor{Type: SourceMapFile.Name, Href: s, Point: &Field{Obj: root, Key: "file"}})
	}
	sources, _ := root["sources"].([]any)
	for i, v := range sources {
		s, ok := v.(string)
		if !ok {
			report(fmt.Errorf("sources[%d] is not a string", i))
			continue
		}
		p := &Element{Obj: root, Key: "sources", Index: i}
		out = append(out, assetgraph.Descriptor{Type: SourceMapSource.Name, Href: sourceRoot(root) + s, Point: p})
	}
	return out
}

func findManifest(d *Document, report func(error)) []assetgraph.Descriptor {
	root := object(d.Value)
	if root == nil {
		return nil
	}
	var out []assetgraph.Descriptor
	if s, ok := root["start_url"].(string); ok {
		out = append(out, assetgraph.Descriptor{Type: ApplicationManifestStartURL.Name, Href: s, Point: &Field{Obj: root, Key: "start_url"}})
	}
	icons, _ := root["icons"].([]any)
	for i, v := range icons {
		icon := object(v)
		s, ok := icon["src"].(string)
		if !ok {
			report(fmt.Errorf("icons[%d] has no src", i))
			continue
		}
		out = append(out, assetgraph.Descriptor{Type: ApplicationManifestIcon.Name, Href: s, Point: &Field{Obj: icon, Key: "src"}})
	}
	return out
}

func sourceRoot(obj map[string]any) string {
	s, _ := obj["sourceRoot"].(string)
	return s
}

func fieldHref(_ any, p assetgraph.Point) string {
	if f, ok := p.(*Field); ok {
		s, _ := f.Obj[f.Key].(string)
		return s
	}
	return ""
}

func setFieldHref(_ any, p assetgraph.Point, h string) error {
	f, ok := p.(*Field)
	if !ok {
		return fmt.Errorf("json: unexpected attachment point %T", p)
	}
	f.Obj[f.Key] = h
	return nil
}

func sourceHref(_ any, p assetgraph.Point) string {
	e, ok := p.(*Element)
	if !ok {
		return ""
	}
	arr, _ := e.Obj[e.Key].([]any)
	if e.Index >= len(arr) {
		return ""
	}
	s, _ := arr[e.Index].(string)
	return sourceRoot(e.Obj) + s
}

// setSourceHref writes a source entry. When the new href does not start
// with sourceRoot the root is folded into every entry and removed.
func setSourceHref(_ any, p assetgraph.Point, h string) error {
	e, ok := p.(*Element)
	if !ok {
		return fmt.Errorf("json: unexpected attachment point %T", p)
	}
	arr, _ := e.Obj[e.Key].([]any)
	if e.Index >= len(arr) {
		return fmt.Errorf("json: %s[%d] out of range", e.Key, e.Index)
	}
	root := sourceRoot(e.Obj)
	if root != "" && !strings.HasPrefix(h, root) {
		for i, v := range arr {
			if s, ok := v.(string); ok {
				arr[i] = root + s
			}
		}
		delete(e.Obj, "sourceRoot")
		root = ""
	}
	arr[e.Index] = strings.TrimPrefix(h, root)
	return nil
}

func inlineField(tree any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
	u, err := target.DataURL()
	if err != nil {
		return nil, err
	}
	return p, setFieldHref(tree, p, u)
}

// Relation types.
var (
	SourceMapFile = &assetgraph.RelationType{
		Name:    "SourceMapFile",
		Href:    fieldHref,
		SetHref: setFieldHref,
	}
	SourceMapSource = &assetgraph.RelationType{
		Name:    "SourceMapSource",
		Href:    sourceHref,
		SetHref: setSourceHref,
	}
	ApplicationManifestIcon = &assetgraph.RelationType{
		Name:         "ApplicationManifestIcon",
		Capabilities: assetgraph.Capabilities{CanInline: true},
		Href:         fieldHref,
		SetHref:      setFieldHref,
		Inline:       inlineField,
	}
	ApplicationManifestStartURL = &assetgraph.RelationType{
		Name:       "ApplicationManifestStartUrl",
		TargetKind: "Html",
		Href:       fieldHref,
		SetHref:    setFieldHref,
	}
)

// Kinds lists the kinds of this package.
func Kinds() []*assetgraph.Kind {
	return []*assetgraph.Kind{Json, SourceMap, ApplicationManifest}
}

// Relations lists the relation types of this package.
func Relations() []*assetgraph.RelationType {
	return []*assetgraph.RelationType{SourceMapFile, SourceMapSource, ApplicationManifestIcon, ApplicationManifestStartURL}
}
