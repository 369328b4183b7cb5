package assetgraph

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/loader"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// ErrNotLoaded is returned when content is read from an asset that has none.
var ErrNotLoaded = errors.New("asset is not loaded")

// Config describes a new asset.
//
// An asset counts as loaded when Raw is non-nil, Text is non-empty, Tree is
// non-nil, or Inline is set. Use Raw: []byte{} for an empty loaded asset.
type Config struct {
	URL         string
	Kind        string // kind name; guessed from ContentType or URL when empty
	ContentType string
	Encoding    string // explicit charset, overrides content declarations

	Raw  []byte
	Text string
	Tree any

	// Inline marks content embedded in another asset. Inline assets have
	// no URL of their own.
	Inline bool

	// NotExternalizable forbids giving the asset a URL (a style attribute
	// cannot become a file).
	NotExternalizable bool

	// Loader fetches content for standalone assets. Graph members use the
	// graph's loader.
	Loader loader.Loader
}

type repState uint8

const (
	absent repState = iota
	cached
	stale
)

// representation is one cached form of the content: raw bytes, text or tree.
type representation[T any] struct {
	val   T
	state repState
}

func (r *representation[T]) set(v T) {
	r.val = v
	r.state = cached
}

func (r *representation[T]) ok() bool { return r.state == cached }

func (r *representation[T]) invalidate() {
	if r.state == cached {
		var zero T
		r.val = zero
		r.state = stale
	}
}

func (r *representation[T]) clear() {
	var zero T
	r.val = zero
	r.state = absent
}

type rep int

const (
	repRaw rep = iota
	repText
	repTree
)

// Asset is one unit of content in the graph.
//
// Content is held in up to three representations: raw bytes, decoded text
// and a kind-specific tree. Any of them can be set; the others are derived
// on demand and cached until the next set.
//
// An Asset is not safe for concurrent use.
type Asset struct {
	id             string
	reg            *Registry
	kind           *Kind
	kindGuessed    bool
	url            string
	contentType    string
	inline         bool
	externalizable bool
	encoding       string
	dirty          bool

	raw  representation[[]byte]
	text representation[string]
	tree representation[any]

	graph        *Graph
	loader       loader.Loader
	incoming     *Relation // relation embedding an inline asset
	baseOverride string
	outgoing     []*Relation
	discovered   bool
	discoverErr  error // problems found by standalone discovery
	populated    bool
	loadErr      error
	seq          uint64
}

// NewAsset creates a standalone asset using the kinds in reg.
func NewAsset(reg *Registry, cfg Config) (*Asset, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	u := cfg.URL
	if u != "" && !cfg.Inline {
		if urltools.IsData(u) {
			res, err := loader.ParseDataURL(u)
			if err != nil {
				return nil, agerrors.Wrap(agerrors.ErrCodeInvalidURL, err, "invalid data url")
			}
			cfg.Inline = true
			cfg.Raw = res.Data
			if cfg.ContentType == "" {
				cfg.ContentType = res.ContentType
			}
			if cfg.Encoding == "" {
				cfg.Encoding = res.Charset
			}
			u = ""
		} else {
			if urltools.HrefTypeOf(u) != urltools.HrefAbsolute {
				return nil, agerrors.New(agerrors.ErrCodeInvalidURL, "asset url must be absolute: %q", u)
			}
			u = urltools.Canonical(u)
		}
	}
	if cfg.Inline {
		u = ""
	}

	kind, guessed, err := reg.guessKind(cfg.Kind, cfg.ContentType, u)
	if err != nil {
		return nil, err
	}
	a := &Asset{
		id:             uuid.NewString(),
		reg:            reg,
		kind:           kind,
		kindGuessed:    guessed,
		url:            u,
		contentType:    cfg.ContentType,
		inline:         cfg.Inline,
		externalizable: !cfg.NotExternalizable,
		encoding:       cfg.Encoding,
		loader:         cfg.Loader,
	}
	if a.contentType == "" {
		a.contentType = kind.ContentType
	}
	switch {
	case cfg.Tree != nil:
		a.tree.set(cfg.Tree)
	case cfg.Text != "":
		a.text.set(cfg.Text)
	case cfg.Raw != nil:
		a.raw.set(cfg.Raw)
	case cfg.Inline:
		if kind.Binary {
			a.raw.set([]byte{})
		} else {
			a.text.set("")
		}
	}
	if guessed && a.IsLoaded() && kind.Binary && a.raw.ok() && sniffTextual(a.raw.val) && reg.textualKind != nil {
		a.kind = reg.textualKind
	}
	return a, nil
}

// ID returns the identity of the asset, stable for its lifetime.
func (a *Asset) ID() string { return a.id }

// Kind returns the kind table of the asset.
func (a *Asset) Kind() *Kind { return a.kind }

// Type returns the kind name ("Html", "Css").
func (a *Asset) Type() string { return a.kind.Name }

// ContentType returns the media type of the asset.
func (a *Asset) ContentType() string { return a.contentType }

// URL returns the canonical URL, or "" for inline assets.
func (a *Asset) URL() string { return a.url }

// IsInline reports whether the asset is embedded in another asset.
func (a *Asset) IsInline() bool { return a.inline }

// IsExternalizable reports whether the asset may be given a URL.
func (a *Asset) IsExternalizable() bool { return a.externalizable }

// IsDirty reports whether the content changed since it was loaded.
func (a *Asset) IsDirty() bool { return a.dirty }

// IsLoaded reports whether any representation of the content is present.
func (a *Asset) IsLoaded() bool { return a.raw.ok() || a.text.ok() || a.tree.ok() }

// IsPopulated reports whether the outgoing relations have been followed.
func (a *Asset) IsPopulated() bool { return a.populated }

// LoadError returns the error of the last failed load, if any.
func (a *Asset) LoadError() error { return a.loadErr }

// Graph returns the graph the asset belongs to, or nil.
func (a *Asset) Graph() *Graph { return a.graph }

// Incoming returns the relation embedding an inline asset, or nil.
func (a *Asset) Incoming() *Relation { return a.incoming }

// String describes the asset for messages: its URL, or its kind and the
// nearest addressable ancestor for inline assets.
func (a *Asset) String() string {
	if a.url != "" {
		return a.url
	}
	if anc := a.NonInlineAncestor(); anc != nil && anc != a && anc.url != "" {
		return fmt.Sprintf("inline %s in %s", a.kind.Name, anc.url)
	}
	return fmt.Sprintf("inline %s", a.kind.Name)
}

// NonInlineAncestor walks up the inline chain to the nearest asset that
// is not inline. It returns a itself when a is not inline, and nil when
// the chain is broken.
func (a *Asset) NonInlineAncestor() *Asset {
	cur := a
	for cur != nil && cur.inline {
		if cur.incoming == nil {
			return nil
		}
		cur = cur.incoming.from
	}
	return cur
}

// BaseURL returns the URL against which references in the asset resolve.
// Inline assets use the URL of their nearest addressable ancestor.
func (a *Asset) BaseURL() string {
	if a.baseOverride != "" {
		return a.baseOverride
	}
	if !a.inline {
		if a.url == "" && a.graph != nil {
			return a.graph.root
		}
		return a.url
	}
	if anc := a.NonInlineAncestor(); anc != nil && anc != a {
		return anc.BaseURL()
	}
	if a.graph != nil {
		return a.graph.root
	}
	return ""
}

// Encoding returns the charset used between raw bytes and text. An
// explicitly configured charset wins over one declared in the content,
// which wins over the kind default.
func (a *Asset) Encoding() string {
	if a.encoding != "" {
		return a.encoding
	}
	if a.kind.DetectEncoding != nil {
		var sample []byte
		switch {
		case a.text.ok():
			sample = []byte(head(a.text.val, 1024))
		case a.raw.ok():
			sample = a.raw.val
			if len(sample) > 1024 {
				sample = sample[:1024]
			}
		}
		if sample != nil {
			if enc := a.kind.DetectEncoding(sample); enc != "" {
				if _, name, ok := lookupEncoding(enc); ok {
					return name
				}
			}
		}
	}
	if a.kind.DefaultEncoding != "" {
		return a.kind.DefaultEncoding
	}
	return utf8Name
}

// SetEncoding changes the charset. The text is kept and the raw bytes are
// re-encoded on the next read.
func (a *Asset) SetEncoding(enc string) error {
	if _, _, ok := lookupEncoding(enc); !ok {
		return agerrors.New(agerrors.ErrCodeInvalidInput, "unsupported encoding %q", enc)
	}
	if a.IsLoaded() && !a.kind.Binary {
		if _, err := a.Text(); err != nil {
			return err
		}
	}
	if enc == a.Encoding() && a.encoding != "" {
		return nil
	}
	a.encoding = enc
	if a.text.ok() || a.tree.ok() {
		a.raw.invalidate()
	}
	a.MarkDirty()
	return nil
}

// Raw returns the content as bytes, encoding the text if needed.
func (a *Asset) Raw() ([]byte, error) {
	if a.raw.ok() {
		return a.raw.val, nil
	}
	if !a.IsLoaded() {
		return nil, a.notLoaded()
	}
	text, err := a.Text()
	if err != nil {
		return nil, err
	}
	raw, err := encode(text, a.Encoding())
	if err != nil {
		return nil, agerrors.Wrap(agerrors.ErrCodeParse, err, "encode").WithAsset(a.String())
	}
	a.raw.set(raw)
	return raw, nil
}

// SetRaw replaces the content with raw bytes.
func (a *Asset) SetRaw(raw []byte) error {
	return a.replace(repRaw, func() { a.raw.set(raw) })
}

// Text returns the content as text. It is derived from the tree when the
// tree is the authoritative representation, otherwise decoded from the raw
// bytes.
func (a *Asset) Text() (string, error) {
	if a.text.ok() {
		return a.text.val, nil
	}
	if !a.IsLoaded() {
		return "", a.notLoaded()
	}
	if a.kind.Binary {
		return "", agerrors.New(agerrors.ErrCodeUnsupported, "%s is binary and has no text", a.kind.Name).WithAsset(a.String())
	}
	var (
		text string
		err  error
	)
	if a.tree.ok() && a.kind.Serialize != nil {
		text, err = a.kind.Serialize(a.tree.val)
		if err != nil {
			return "", agerrors.Wrap(agerrors.ErrCodeParse, err, "serialize").WithAsset(a.String())
		}
	} else {
		text, err = decode(a.raw.val, a.Encoding())
		if err != nil {
			if rerr := a.report(agerrors.Wrap(agerrors.ErrCodeParse, err, "decode").WithAsset(a.String())); rerr != nil {
				return "", rerr
			}
			text = string(a.raw.val)
		}
	}
	a.text.set(text)
	return text, nil
}

// SetText replaces the content with text.
func (a *Asset) SetText(text string) error {
	if a.kind.Binary {
		return agerrors.New(agerrors.ErrCodeUnsupported, "%s is binary and has no text", a.kind.Name).WithAsset(a.String())
	}
	return a.replace(repText, func() { a.text.set(text) })
}

// Tree returns the parsed content. Parse failures are returned for
// standalone assets; graph members record a warning and get the partial
// tree the kind produced (possibly nil).
func (a *Asset) Tree() (any, error) {
	if a.tree.ok() {
		return a.tree.val, nil
	}
	if !a.IsLoaded() {
		return nil, a.notLoaded()
	}
	if a.kind.Binary || a.kind.Parse == nil {
		return nil, nil
	}
	text, err := a.Text()
	if err != nil {
		return nil, err
	}
	tree, perr := a.kind.Parse(text)
	if perr != nil {
		err := asContentError(perr, agerrors.ErrCodeParse, a)
		if rerr := a.report(err); rerr != nil {
			return nil, rerr
		}
	}
	a.tree.set(tree)
	return tree, nil
}

// SetTree replaces the content with a tree.
func (a *Asset) SetTree(tree any) error {
	if a.kind.Parse == nil {
		return agerrors.New(agerrors.ErrCodeUnsupported, "%s has no tree", a.kind.Name).WithAsset(a.String())
	}
	return a.replace(repTree, func() { a.tree.set(tree) })
}

// replace installs a new authoritative representation. For graph members
// the old relations are dropped and rediscovered from the new content.
func (a *Asset) replace(keep rep, set func()) error {
	if a.graph != nil {
		a.graph.dropOutgoing(a)
	} else {
		a.detachOutgoing()
	}
	set()
	a.invalidateOthers(keep)
	a.loadErr = nil
	if a.graph != nil {
		a.graph.discoverFrom(a)
	}
	a.MarkDirty()
	return nil
}

// invalidateOthers marks every representation except keep as stale.
func (a *Asset) invalidateOthers(keep rep) {
	if keep != repRaw {
		a.raw.invalidate()
	}
	if keep != repText {
		a.text.invalidate()
	}
	if keep != repTree {
		a.tree.invalidate()
	}
}

// treeChanged is called after the tree was mutated in place through an
// attachment point.
func (a *Asset) treeChanged() {
	a.invalidateOthers(repTree)
	a.MarkDirty()
}

// MarkDirty flags the content as changed. An inline asset writes its new
// content into its owner, which becomes dirty in turn.
func (a *Asset) MarkDirty() {
	a.dirty = true
	if !a.inline || a.incoming == nil {
		return
	}
	r := a.incoming
	if r.state != Attached || r.from == nil || r.typ.Inline == nil {
		return
	}
	tree, err := r.from.Tree()
	if err != nil {
		r.from.report(err)
		return
	}
	p, err := r.typ.Inline(tree, r.point, a)
	if err != nil {
		r.from.report(asContentError(err, agerrors.ErrCodeInternal, r.from))
		return
	}
	r.point = p
	r.from.treeChanged()
}

// Unload drops all content. Outgoing relations are removed and inline
// children with no other owner leave the graph.
func (a *Asset) Unload() {
	if a.graph != nil {
		a.graph.dropOutgoing(a)
	} else {
		a.detachOutgoing()
	}
	a.raw.clear()
	a.text.clear()
	a.tree.clear()
	a.populated = false
}

// Load fetches the content if it is not loaded yet. Standalone assets use
// the loader from their Config (file, data and http by default).
func (a *Asset) Load(ctx context.Context) error {
	if a.IsLoaded() {
		return nil
	}
	if a.url == "" {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot load an asset without url").WithAsset(a.String())
	}
	var (
		res *loader.Resource
		err error
	)
	if a.graph != nil {
		res, err = a.graph.fetch(ctx, a.url)
	} else {
		l := a.loader
		if l == nil {
			l = loader.Default(nil)
		}
		res, err = l.Load(ctx, a.url)
	}
	if err != nil {
		a.loadErr = err
		return a.report(asContentError(err, agerrors.ErrCodeLoad, a))
	}
	a.applyResource(res)
	if a.graph != nil {
		a.graph.discoverFrom(a)
	}
	return nil
}

// applyResource installs freshly loaded content without marking it dirty.
func (a *Asset) applyResource(res *loader.Resource) {
	a.loadErr = nil
	if res.ContentType != "" {
		a.contentType = res.ContentType
		if a.kindGuessed {
			if k, ok := a.reg.KindForContentType(res.ContentType); ok {
				a.kind = k
				a.kindGuessed = false
			}
		}
	}
	if a.encoding == "" && res.Charset != "" {
		if _, _, ok := lookupEncoding(res.Charset); ok {
			a.encoding = res.Charset
		}
	}
	if a.kindGuessed && a.kind.Binary && a.reg.textualKind != nil && sniffTextual(res.Data) {
		a.kind = a.reg.textualKind
	}
	a.raw.set(res.Data)
	a.invalidateOthers(repRaw)
	a.text.clear()
	a.tree.clear()
}

// Populate follows the outgoing relations of a graph member. Standalone
// assets cannot be populated.
func (a *Asset) Populate(ctx context.Context) error {
	if a.graph == nil {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot populate an asset that is not in a graph").WithAsset(a.String())
	}
	return a.graph.Populate(ctx, PopulateOptions{Seeds: []*Asset{a}})
}

// OutgoingRelations returns the relations found in the content, in
// document order.
func (a *Asset) OutgoingRelations() ([]*Relation, error) {
	if err := a.ensureRelations(); err != nil {
		return nil, err
	}
	out := make([]*Relation, 0, len(a.outgoing))
	for _, r := range a.outgoing {
		if r.state == Attached {
			out = append(out, r)
		}
	}
	return out, nil
}

// IncomingRelations returns the relations of the graph pointing at a.
func (a *Asset) IncomingRelations() ([]*Relation, error) {
	if a.graph == nil {
		return nil, agerrors.New(agerrors.ErrCodeUsage, "incoming relations need a graph").WithAsset(a.String())
	}
	return a.graph.FindRelations(RelationQuery{To: a}, true), nil
}

// SetURL moves the asset. Relative URLs resolve against the current URL
// (or the base URL of the asset). References to the asset and relative
// references inside it are rewritten so that they keep pointing at the
// same targets.
func (a *Asset) SetURL(href string) error {
	if !a.externalizable {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot set url of a non-externalizable asset").WithAsset(a.String())
	}
	var embedding *Relation
	if a.inline && a.incoming != nil && a.incoming.state == Attached {
		embedding = a.incoming
		if !embedding.typ.canExternalize() {
			return agerrors.New(agerrors.ErrCodeUsage, "%s cannot reference an external asset", embedding.typ.Name).WithAsset(a.String())
		}
	}
	base := a.url
	if base == "" {
		base = a.BaseURL()
	}
	if strings.HasPrefix(href, "//") && urltools.Scheme(base) == "file" {
		href = "http:" + href
	}
	if urltools.HrefTypeOf(href) != urltools.HrefAbsolute && base == "" {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot resolve relative url %q without a base", href).WithAsset(a.String())
	}
	resolved, err := urltools.Resolve(base, href)
	if err != nil {
		return agerrors.Wrap(agerrors.ErrCodeInvalidURL, err, "set url").WithAsset(a.String())
	}
	newURL := urltools.Canonical(resolved)
	if newURL == a.url {
		return nil
	}
	if a.graph != nil {
		if other, ok := a.graph.byURL[newURL]; ok && other != a {
			return agerrors.New(agerrors.ErrCodeUsage, "an asset with url %s already exists", newURL)
		}
		a.graph.moveAsset(a, newURL)
	}
	a.url = newURL
	if embedding != nil {
		a.inline = false
		embedding.hrefType = urltools.HrefRelative
		if err := embedding.externalize(); err != nil {
			return err
		}
	} else if a.inline {
		a.inline = false
		if a.incoming != nil && a.incoming.hrefType == urltools.HrefInline {
			a.incoming.hrefType = urltools.HrefRelative
		}
	}
	return a.refreshReferences()
}

// SetFileName moves the asset to name in its current directory.
func (a *Asset) SetFileName(name string) error {
	if name == "" || strings.ContainsAny(name, "/?#") {
		return agerrors.New(agerrors.ErrCodeUsage, "invalid file name %q", name).WithAsset(a.String())
	}
	if a.url == "" {
		return a.SetURL(name)
	}
	u, _, _ := strings.Cut(a.url, "?")
	dir, _ := path.Split(u)
	return a.SetURL(dir + name)
}

// FileName returns the last path segment of the URL, without the query.
func (a *Asset) FileName() string {
	u, _, _ := strings.Cut(a.url, "?")
	_, file := path.Split(u)
	return file
}

// SetExtension replaces the extension of the file name. ext includes the
// leading dot; "" removes the extension.
func (a *Asset) SetExtension(ext string) error {
	if ext != "" && (!strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, "/?#")) {
		return agerrors.New(agerrors.ErrCodeUsage, "invalid extension %q", ext).WithAsset(a.String())
	}
	name := a.FileName()
	if a.url == "" {
		name = "inline"
	}
	return a.SetFileName(strings.TrimSuffix(name, path.Ext(name)) + ext)
}

// refreshReferences rewrites incoming hrefs and the relative hrefs of a and
// its inline descendants after a move.
func (a *Asset) refreshReferences() error {
	var incoming []*Relation
	if a.graph != nil {
		incoming = a.graph.FindRelations(RelationQuery{To: a}, true)
	} else if a.incoming != nil {
		incoming = []*Relation{a.incoming}
	}
	var errs []error
	for _, r := range incoming {
		if err := r.refreshHref(); err != nil {
			errs = append(errs, err)
		}
	}

	queue := []*Asset{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, r := range cur.outgoing {
			if r.state != Attached || r.to == nil {
				continue
			}
			if r.to.inline {
				queue = append(queue, r.to)
				continue
			}
			switch r.hrefType {
			case urltools.HrefRelative, urltools.HrefRootRelative:
				if err := r.refreshHref(); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Clone creates a copy of a non-inline asset. In a graph the copy is
// registered next to the original under a derived URL and its relations
// are discovered, sharing the original's external targets.
func (a *Asset) Clone() (*Asset, error) {
	if a.inline {
		return nil, agerrors.New(agerrors.ErrCodeUsage, "cannot clone an inline asset").WithAsset(a.String())
	}
	cfg := Config{Kind: a.kind.Name, ContentType: a.contentType, Encoding: a.encoding, Loader: a.loader}
	if a.IsLoaded() {
		if a.kind.Binary {
			raw, err := a.Raw()
			if err != nil {
				return nil, err
			}
			cfg.Raw = append([]byte{}, raw...)
		} else {
			text, err := a.Text()
			if err != nil {
				return nil, err
			}
			cfg.Text = text
			if text == "" {
				cfg.Raw = []byte{}
			}
		}
	}
	if !a.externalizable {
		cfg.NotExternalizable = true
	}
	c, err := NewAsset(a.reg, cfg)
	if err != nil {
		return nil, err
	}
	if a.url != "" {
		c.url = cloneURL(a.url, c.id)
	}
	c.dirty = true
	if a.graph != nil {
		// Discover against the original location so relative references
		// keep their targets, then rewrite them for the new location.
		c.baseOverride = a.url
		if err := a.graph.AddAsset(c); err != nil {
			return nil, err
		}
		c.baseOverride = ""
		if err := c.refreshReferences(); err != nil {
			return nil, err
		}
		c.populated = a.populated
	}
	return c, nil
}

// ReplaceWith puts other in the place of a. Relations pointing at a are
// retargeted to other, which takes over a's URL when it has none of its own
// (or a's attachment point when a is inline). a leaves the graph.
func (a *Asset) ReplaceWith(other *Asset) error {
	g := a.graph
	switch {
	case g == nil:
		return agerrors.New(agerrors.ErrCodeUsage, "cannot replace an asset that is not in a graph").WithAsset(a.String())
	case other == nil:
		return agerrors.New(agerrors.ErrCodeUsage, "cannot replace an asset with nothing").WithAsset(a.String())
	case other.graph != nil:
		return agerrors.New(agerrors.ErrCodeUsage, "replacement is already in a graph").WithAsset(other.String())
	}
	newURL := a.url
	if !a.inline && other.url != "" {
		newURL = other.url
	}
	if existing, ok := g.byURL[newURL]; ok && existing != a {
		return agerrors.New(agerrors.ErrCodeUsage, "an asset with url %s already exists", newURL)
	}

	incoming := g.FindRelations(RelationQuery{To: a}, true)
	if a.url != "" && g.byURL[a.url] == a {
		delete(g.byURL, a.url)
	}
	if other.discovered {
		other.detachOutgoing()
	}
	other.url = newURL
	other.inline = a.inline
	if a.inline {
		other.incoming = a.incoming
		a.incoming = nil
	}
	g.register(other)

	var errs []error
	for _, r := range incoming {
		g.moveRelationTarget(r, other)
		if !other.inline {
			if err := r.refreshHref(); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if r.state != Attached || r.typ.Inline == nil {
			continue
		}
		tree, err := r.from.Tree()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p, err := r.typ.Inline(tree, r.point, other)
		if err != nil {
			errs = append(errs, agerrors.Wrap(agerrors.ErrCodeUsage, err, "replace %s", r.typ.Name).WithAsset(r.from.String()))
			continue
		}
		r.point = p
		r.from.treeChanged()
	}
	g.removeAssets([]*Asset{a})
	other.dirty = true
	if err := g.discoverFrom(other); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func cloneURL(u, id string) string {
	dir, file := path.Split(u)
	ext := path.Ext(file)
	return dir + strings.TrimSuffix(file, ext) + "-" + id[:8] + ext
}

// DataURL returns the content encoded as a data: URL.
func (a *Asset) DataURL() (string, error) {
	raw, err := a.Raw()
	if err != nil {
		return "", err
	}
	ct := a.contentType
	if !a.kind.Binary && a.Encoding() != utf8Name && !strings.Contains(ct, "charset") {
		ct += ";charset=" + a.Encoding()
	}
	return loader.DataURL(ct, raw), nil
}

// ensureRelations runs relation discovery once. A standalone asset keeps
// failing with the problems of that run.
func (a *Asset) ensureRelations() error {
	if a.discovered {
		if a.graph == nil {
			return a.discoverErr
		}
		return nil
	}
	if a.graph != nil {
		return a.graph.discoverFrom(a)
	}
	return a.discover()
}

// discover asks the kind for references and turns them into relations.
// Targets are resolved through the graph when there is one, otherwise
// placeholder assets are created.
func (a *Asset) discover() error {
	if a.discovered || !a.IsLoaded() {
		return nil
	}
	tree, err := a.Tree()
	if err != nil {
		return err
	}
	a.discovered = true
	a.discoverErr = nil
	if a.kind.FindRelations == nil {
		return nil
	}

	var problems []error
	descs := a.kind.FindRelations(tree, func(err error) {
		problems = append(problems, asContentError(err, agerrors.ErrCodeSyntax, a))
	})
	for _, d := range descs {
		t, ok := a.reg.Relation(d.Type)
		if !ok {
			problems = append(problems, agerrors.New(agerrors.ErrCodeInternal, "unknown relation type %s", d.Type).WithAsset(a.String()))
			continue
		}
		r := &Relation{typ: t, from: a, point: d.Point, state: Attached}
		if err := a.bindTarget(r, d); err != nil {
			problems = append(problems, err)
			continue
		}
		a.outgoing = append(a.outgoing, r)
		if a.graph != nil {
			a.graph.addRelation(r)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	if a.graph != nil {
		for _, p := range problems {
			a.graph.Warn(p)
		}
		return nil
	}
	a.discoverErr = errors.Join(problems...)
	return a.discoverErr
}

// bindTarget sets r.to from a descriptor: an inline child for embedded
// content and data: URLs, a resolved asset otherwise.
func (a *Asset) bindTarget(r *Relation, d Descriptor) error {
	switch {
	case d.Inline != nil:
		cfg := *d.Inline
		cfg.Inline = true
		if cfg.Kind == "" {
			cfg.Kind = r.typ.TargetKind
		}
		child, err := NewAsset(a.reg, cfg)
		if err != nil {
			return err
		}
		r.hrefType = urltools.HrefInline
		a.adopt(r, child)
		return nil
	case urltools.IsData(d.Href):
		res, err := loader.ParseDataURL(d.Href)
		if err != nil {
			return agerrors.Wrap(agerrors.ErrCodeSyntax, err, "malformed data url in %s", r.typ.Name).WithAsset(a.String())
		}
		child, err := NewAsset(a.reg, Config{ContentType: res.ContentType, Encoding: res.Charset, Raw: res.Data, Inline: true})
		if err != nil {
			return err
		}
		r.hrefType = urltools.HrefInline
		a.adopt(r, child)
		return nil
	}

	href, frag := urltools.SplitFragment(d.Href)
	r.fragment = frag
	r.hrefType = urltools.HrefTypeOf(d.Href)
	r.rawHref = d.Href
	target, err := a.resolveTarget(r, href)
	if err != nil {
		return err
	}
	r.to = target
	return nil
}

// adopt makes child the inline target of r.
func (a *Asset) adopt(r *Relation, child *Asset) {
	child.incoming = r
	r.to = child
	if a.graph != nil {
		a.graph.register(child)
	}
}

// resolveTarget finds or creates the asset an href points at.
func (a *Asset) resolveTarget(r *Relation, href string) (*Asset, error) {
	base := a.BaseURL()
	var target string
	if href == "" {
		// An empty reference (url(), href="#frag") points at the document.
		if anc := a.NonInlineAncestor(); anc != nil && anc.url != "" {
			target = anc.url
		} else {
			target = base
		}
	} else {
		resolved, err := urltools.Resolve(base, href)
		if err != nil {
			if a.graph != nil {
				return nil, agerrors.Wrap(agerrors.ErrCodeSyntax, err, "cannot resolve %s href", r.typ.Name).WithAsset(a.String())
			}
			// Standalone assets without a base keep an unaddressed placeholder.
			return a.placeholder(r.typ, "")
		}
		target = urltools.Canonical(resolved)
	}
	if a.graph != nil {
		return a.graph.assetForURL(target, r.typ)
	}
	return a.placeholder(r.typ, target)
}

func (a *Asset) placeholder(t *RelationType, u string) (*Asset, error) {
	p, err := NewAsset(a.reg, Config{Kind: t.TargetKind, URL: u, Loader: a.loader})
	if err != nil {
		return nil, err
	}
	if t.TargetKind == "" {
		p.kindGuessed = true
	}
	return p, nil
}

// detachOutgoing forgets the relations of a standalone asset.
func (a *Asset) detachOutgoing() {
	for _, r := range a.outgoing {
		if r.state == Attached {
			r.rawHref = r.Href()
			r.state = Detached
			r.point = nil
		}
	}
	a.outgoing = nil
	a.discovered = false
	a.discoverErr = nil
}

// report routes a content error: graph members record it and continue,
// standalone assets return it.
func (a *Asset) report(err error) error {
	if err == nil {
		return nil
	}
	if a.graph != nil {
		a.graph.Warn(err)
		return nil
	}
	return err
}

func (a *Asset) notLoaded() error {
	return fmt.Errorf("%s: %w", a.String(), ErrNotLoaded)
}

// asContentError converts err into an *errors.Error with the given code
// unless it already carries one, and records the asset.
func asContentError(err error, code agerrors.Code, a *Asset) *agerrors.Error {
	var e *agerrors.Error
	if errors.As(err, &e) {
		if e.Asset == "" {
			e.Asset = a.String()
		}
		return e
	}
	var le *agerrors.LoadError
	if errors.As(err, &le) {
		return &agerrors.Error{Code: agerrors.ErrCodeLoad, Message: le.Error(), Cause: err, Asset: a.String(), Status: le.Status}
	}
	return agerrors.Wrap(code, err, "%s", codeMessages[code]).WithAsset(a.String())
}

var codeMessages = map[agerrors.Code]string{
	agerrors.ErrCodeLoad:     "load failed",
	agerrors.ErrCodeParse:    "parse failed",
	agerrors.ErrCodeSyntax:   "syntax error",
	agerrors.ErrCodeInternal: "internal error",
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func extensionOf(u string) string { return urltools.Extension(u) }
