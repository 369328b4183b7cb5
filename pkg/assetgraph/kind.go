package assetgraph

import (
	"fmt"
	"strings"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
)

// Point is an opaque handle to a location inside an asset's tree. Each kind
// defines its own concrete type (an element and attribute name, a segment in
// a token list, a key in a JSON object). The core never looks inside.
type Point any

// Position selects where [Relation.Attach] places a new attachment point.
type Position int

const (
	// Last appends after every existing relation of the owner.
	Last Position = iota
	// First inserts before every existing relation of the owner.
	First
	// Before inserts immediately before the adjacent relation.
	Before
	// After inserts immediately after the adjacent relation.
	After
)

// String returns the lower-case name of the position.
func (p Position) String() string {
	switch p {
	case First:
		return "first"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "last"
	}
}

// ParsePosition parses "first", "last", "before" or "after".
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(s) {
	case "first":
		return First, nil
	case "last", "":
		return Last, nil
	case "before":
		return Before, nil
	case "after":
		return After, nil
	}
	return Last, agerrors.New(agerrors.ErrCodeInvalidInput, "unknown position %q", s)
}

// Descriptor is what a kind reports for each reference found in a tree.
// Exactly one of Href and Inline is meaningful: Inline describes content
// embedded in the owner (a <style> body, a noscript fragment).
type Descriptor struct {
	Type   string  // relation type name
	Href   string  // raw reference as written
	Inline *Config // embedded content, nil for references
	Point  Point   // location of the reference in the tree
}

// Kind is the plugin table for one content kind.
//
// Parse and Serialize are nil for binary kinds, which only ever hold raw
// bytes. FindRelations may be nil for kinds without references. Kinds must
// not depend on the graph: everything they need is passed in.
type Kind struct {
	Name            string
	ContentType     string
	AltContentTypes []string // other media types served for this kind
	Extensions      []string
	DefaultEncoding string
	Binary          bool

	// Parse turns text into a tree. On failure it may return a partial tree
	// together with the error.
	Parse func(text string) (any, error)

	// Serialize turns a tree back into text.
	Serialize func(tree any) (string, error)

	// FindRelations lists the references in tree in document order.
	// Localized problems (one bad manifest line) are passed to report and
	// the offending construct is skipped.
	FindRelations func(tree any, report func(error)) []Descriptor

	// DetectEncoding returns the charset declared inside the content, or ""
	// when there is none.
	DetectEncoding func(sample []byte) string
}

// Capabilities lists the mutations a relation type permits.
type Capabilities struct {
	CanAttach bool
	CanDetach bool
	CanInline bool
}

// AllCapabilities permits attach, detach and inline.
var AllCapabilities = Capabilities{CanAttach: true, CanDetach: true, CanInline: true}

// RelationType is the plugin table for one kind of reference.
//
// All functions operate on the owner's tree at an attachment point. A nil
// Href means the relation has no textual reference (an inline-only
// relation such as a style attribute).
type RelationType struct {
	Name         string
	TargetKind   string // kind assumed for unloaded targets, "" to guess
	Capabilities Capabilities

	Href    func(tree any, p Point) string
	SetHref func(tree any, p Point, href string) error

	// Attach creates a new attachment point holding href, placed relative to
	// adjacent (nil means at the boundary given by pos).
	Attach func(tree any, pos Position, adjacent Point, href string) (Point, error)

	// Detach removes the attachment point from tree.
	Detach func(tree any, p Point) error

	// Inline writes the content of target into the attachment point, turning
	// an external reference into its embedded form if needed. It is also
	// used to refresh the embedded copy after target changes. It returns the
	// (possibly new) attachment point.
	Inline func(tree any, p Point, target *Asset) (Point, error)

	// Externalize turns embedded content at p back into a reference to
	// href (a <style> becomes a <link>). When nil, SetHref is used, which
	// suits references that embed content as a data: URL.
	Externalize func(tree any, p Point, href string) (Point, error)
}

// canExternalize reports whether an inline target of t can be replaced by
// a reference.
func (t *RelationType) canExternalize() bool {
	return t.Externalize != nil || (t.Href != nil && t.SetHref != nil)
}

// Registry holds the kind and relation type tables.
// A Registry is read-only once a graph starts using it.
type Registry struct {
	kinds       map[string]*Kind
	byExt       map[string]*Kind
	byType      map[string]*Kind
	relations   map[string]*RelationType
	fallback    *Kind
	textualKind *Kind
}

// Generic is the kind used for content nothing else claims.
var Generic = &Kind{
	Name:        "Asset",
	ContentType: "application/octet-stream",
	Binary:      true,
}

// NewRegistry creates a Registry holding only the [Generic] kind.
func NewRegistry() *Registry {
	r := &Registry{
		kinds:     make(map[string]*Kind),
		byExt:     make(map[string]*Kind),
		byType:    make(map[string]*Kind),
		relations: make(map[string]*RelationType),
	}
	_ = r.RegisterKind(Generic)
	r.fallback = Generic
	return r
}

// RegisterKind adds k. The first kind registered for an extension or a
// content type wins, so register more specific kinds first only if they
// should own the mapping.
func (r *Registry) RegisterKind(k *Kind) error {
	if k == nil || k.Name == "" {
		return agerrors.New(agerrors.ErrCodeInvalidInput, "kind must have a name")
	}
	if _, ok := r.kinds[k.Name]; ok {
		return agerrors.New(agerrors.ErrCodeInvalidInput, "kind %s already registered", k.Name)
	}
	r.kinds[k.Name] = k
	for _, ext := range k.Extensions {
		ext = strings.ToLower(ext)
		if _, ok := r.byExt[ext]; !ok {
			r.byExt[ext] = k
		}
	}
	for _, ct := range append([]string{k.ContentType}, k.AltContentTypes...) {
		if _, ok := r.byType[ct]; ct != "" && !ok {
			r.byType[ct] = k
		}
	}
	return nil
}

// RegisterRelation adds t.
func (r *Registry) RegisterRelation(t *RelationType) error {
	if t == nil || t.Name == "" {
		return agerrors.New(agerrors.ErrCodeInvalidInput, "relation type must have a name")
	}
	if _, ok := r.relations[t.Name]; ok {
		return agerrors.New(agerrors.ErrCodeInvalidInput, "relation type %s already registered", t.Name)
	}
	r.relations[t.Name] = t
	return nil
}

// MustRegister registers kinds and relation types and panics on conflicts.
// It is meant for package-level registry assembly.
func (r *Registry) MustRegister(kinds []*Kind, types []*RelationType) *Registry {
	for _, k := range kinds {
		if err := r.RegisterKind(k); err != nil {
			panic(err)
		}
	}
	for _, t := range types {
		if err := r.RegisterRelation(t); err != nil {
			panic(err)
		}
	}
	return r
}

// SetFallback selects the kind used when nothing else matches. The
// textual fallback is used for content that decodes as text.
func (r *Registry) SetFallback(binary, textual string) error {
	b, ok := r.kinds[binary]
	if !ok {
		return fmt.Errorf("unknown kind %q", binary)
	}
	r.fallback = b
	if textual != "" {
		t, ok := r.kinds[textual]
		if !ok {
			return fmt.Errorf("unknown kind %q", textual)
		}
		r.textualKind = t
	}
	return nil
}

// Kind returns the kind with the given name.
func (r *Registry) Kind(name string) (*Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// KindForExtension returns the kind claiming ext (".css").
func (r *Registry) KindForExtension(ext string) (*Kind, bool) {
	k, ok := r.byExt[strings.ToLower(ext)]
	return k, ok
}

// KindForContentType returns the kind claiming the media type ct.
// Parameters are ignored.
func (r *Registry) KindForContentType(ct string) (*Kind, bool) {
	ct, _, _ = strings.Cut(ct, ";")
	k, ok := r.byType[strings.ToLower(strings.TrimSpace(ct))]
	return k, ok
}

// Relation returns the relation type with the given name.
func (r *Registry) Relation(name string) (*RelationType, bool) {
	t, ok := r.relations[name]
	return t, ok
}

// Kinds returns the registered kind names.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	return names
}

// guessKind picks a kind from an explicit name, a content type, then the
// URL extension. The second result reports whether the choice was a guess
// that a later content type may override.
func (r *Registry) guessKind(name, contentType, url string) (*Kind, bool, error) {
	if name != "" {
		k, ok := r.kinds[name]
		if !ok {
			return nil, false, agerrors.New(agerrors.ErrCodeInvalidInput, "unknown kind %q", name)
		}
		return k, false, nil
	}
	if contentType != "" {
		if k, ok := r.KindForContentType(contentType); ok {
			return k, false, nil
		}
		if r.textualKind != nil && strings.HasPrefix(contentType, "text/") {
			return r.textualKind, false, nil
		}
	}
	if k, ok := r.KindForExtension(extensionOf(url)); ok {
		return k, true, nil
	}
	return r.fallback, true, nil
}
