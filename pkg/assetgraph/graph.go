package assetgraph

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/loader"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// Options configures a [Graph].
type Options struct {
	// Root is the base URL for relative seeds. Filesystem paths are
	// converted to file: URLs.
	Root string

	// Registry holds the kind tables. Defaults to [NewRegistry], which only
	// knows the generic kind; use kinds/all for the full set.
	Registry *Registry

	// Loader fetches content. Defaults to file:, data: and http(s): loaders.
	Loader loader.Loader

	// Logger receives diagnostics. Defaults to log.Default().
	Logger *log.Logger
}

// Graph is a registry of assets and the relations between them.
//
// Assets are unique by canonical URL; inline assets are tracked by
// identity. Relations are indexed by type and by target; relations by owner
// live on the owning asset in document order.
//
// A Graph is not safe for concurrent use. [Graph.Populate] loads content
// concurrently but applies every mutation on the calling goroutine.
type Graph struct {
	root   string
	reg    *Registry
	loader loader.Loader
	logger *log.Logger
	flight singleflight.Group

	assets    map[*Asset]struct{}
	byURL     map[string]*Asset
	byID      map[string]*Asset
	relations map[*Relation]struct{}
	byType    map[string]map[*Relation]struct{}
	byTo      map[*Asset]map[*Relation]struct{}
	seq       uint64

	diag diagnostics
}

// New creates an empty graph.
func New(opts Options) (*Graph, error) {
	g := &Graph{
		reg:       opts.Registry,
		loader:    opts.Loader,
		logger:    opts.Logger,
		assets:    make(map[*Asset]struct{}),
		byURL:     make(map[string]*Asset),
		byID:      make(map[string]*Asset),
		relations: make(map[*Relation]struct{}),
		byType:    make(map[string]map[*Relation]struct{}),
		byTo:      make(map[*Asset]map[*Relation]struct{}),
	}
	if g.reg == nil {
		g.reg = NewRegistry()
	}
	if g.loader == nil {
		g.loader = loader.Default(nil)
	}
	if g.logger == nil {
		g.logger = log.Default()
	}
	if opts.Root != "" {
		root, err := normalizeRoot(opts.Root)
		if err != nil {
			return nil, err
		}
		g.root = root
	}
	return g, nil
}

// normalizeRoot turns a path or URL into a directory URL ending in '/'.
func normalizeRoot(root string) (string, error) {
	if urltools.HrefTypeOf(root) != urltools.HrefAbsolute {
		u, err := urltools.FromPath(root)
		if err != nil {
			return "", agerrors.Wrap(agerrors.ErrCodeInvalidInput, err, "invalid root %q", root)
		}
		root = u
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root, nil
}

// Root returns the base URL for relative seeds.
func (g *Graph) Root() string { return g.root }

// Registry returns the kind tables used by the graph.
func (g *Graph) Registry() *Registry { return g.reg }

// Logger returns the diagnostics logger.
func (g *Graph) Logger() *log.Logger { return g.logger }

// Asset returns the asset with the given canonical URL.
func (g *Graph) Asset(url string) (*Asset, bool) {
	a, ok := g.byURL[urltools.Canonical(url)]
	return a, ok
}

// AssetByID returns the asset with the given identity.
func (g *Graph) AssetByID(id string) (*Asset, bool) {
	a, ok := g.byID[id]
	return a, ok
}

// Len returns the number of assets.
func (g *Graph) Len() int { return len(g.assets) }

// NewAsset creates an asset with the graph's registry and adds it.
func (g *Graph) NewAsset(cfg Config) (*Asset, error) {
	a, err := NewAsset(g.reg, cfg)
	if err != nil {
		return nil, err
	}
	if err := g.AddAsset(a); err != nil {
		return nil, err
	}
	return a, nil
}

// AddAsset registers a and discovers its relations without loading
// anything. Targets not yet in the graph become unloaded placeholders.
func (g *Graph) AddAsset(a *Asset) error {
	if a == nil {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot add a nil asset")
	}
	if a.graph != nil {
		return agerrors.New(agerrors.ErrCodeUsage, "asset is already in a graph").WithAsset(a.String())
	}
	if a.url != "" {
		if _, ok := g.byURL[a.url]; ok {
			return agerrors.New(agerrors.ErrCodeUsage, "an asset with url %s already exists", a.url)
		}
	}
	if a.discovered {
		// Relations found while standalone point at placeholders.
		a.detachOutgoing()
	}
	g.register(a)
	return g.discoverFrom(a)
}

// RemoveAsset removes a from the graph together with its outgoing
// relations, the relations pointing at it, and inline children that no
// other relation owns.
func (g *Graph) RemoveAsset(a *Asset) error {
	if a == nil || a.graph != g {
		return agerrors.New(agerrors.ErrCodeUsage, "asset is not in this graph")
	}
	g.removeAssets([]*Asset{a})
	return nil
}

// LoadAssets adds and loads seed assets. Hrefs are URLs, paths relative to
// the root, or filesystem paths when the graph has no root. Assets that
// fail to load stay in the graph unloaded and a warning is recorded.
func (g *Graph) LoadAssets(ctx context.Context, hrefs ...string) ([]*Asset, error) {
	out := make([]*Asset, 0, len(hrefs))
	for _, href := range hrefs {
		if err := agerrors.ValidateSeed(href); err != nil {
			return out, err
		}
		u, err := g.seedURL(href)
		if err != nil {
			return out, err
		}
		a, ok := g.byURL[urltools.Canonical(u)]
		if !ok {
			if a, err = NewAsset(g.reg, Config{URL: u}); err != nil {
				return out, err
			}
			if a.inline {
				// data: seeds have no URL and are tracked by identity.
				a.inline = false
			}
			g.register(a)
		}
		if err := a.Load(ctx); err != nil {
			return out, err
		}
		if err := g.discoverFrom(a); err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (g *Graph) seedURL(href string) (string, error) {
	if urltools.HrefTypeOf(href) == urltools.HrefAbsolute || urltools.IsData(href) {
		return href, nil
	}
	if g.root != "" {
		return urltools.Resolve(g.root, href)
	}
	return urltools.FromPath(href)
}

// register adds a to the asset indices without discovering relations.
func (g *Graph) register(a *Asset) {
	if a.graph == g {
		return
	}
	g.seq++
	a.seq = g.seq
	a.graph = g
	g.assets[a] = struct{}{}
	g.byID[a.id] = a
	if a.url != "" {
		g.byURL[a.url] = a
	}
}

// discoverFrom discovers the relations of a and, transitively, of its
// inline children. Nothing is loaded.
func (g *Graph) discoverFrom(a *Asset) error {
	queue := []*Asset{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if err := cur.discover(); err != nil {
			return err
		}
		for _, r := range cur.outgoing {
			if r.to != nil && r.to.inline && !r.to.discovered && r.to.graph == g {
				queue = append(queue, r.to)
			}
		}
	}
	return nil
}

// assetForURL returns the asset registered for url, creating an unloaded
// placeholder when there is none.
func (g *Graph) assetForURL(url string, t *RelationType) (*Asset, error) {
	if a, ok := g.byURL[url]; ok {
		if a.kindGuessed && !a.IsLoaded() && t.TargetKind != "" {
			if k, ok := g.reg.Kind(t.TargetKind); ok {
				a.kind = k
				a.contentType = k.ContentType
				a.kindGuessed = false
			}
		}
		return a, nil
	}
	a, err := NewAsset(g.reg, Config{URL: url, Kind: t.TargetKind})
	if err != nil {
		return nil, err
	}
	if t.TargetKind == "" {
		a.kindGuessed = true
	}
	g.register(a)
	return a, nil
}

func (g *Graph) addRelation(r *Relation) {
	if _, ok := g.relations[r]; ok {
		return
	}
	g.seq++
	r.seq = g.seq
	g.relations[r] = struct{}{}
	addTo(g.byType, r.typ.Name, r)
	if r.to != nil {
		addTo(g.byTo, r.to, r)
	}
}

func (g *Graph) removeRelation(r *Relation) {
	delete(g.relations, r)
	removeFrom(g.byType, r.typ.Name, r)
	if r.to != nil {
		removeFrom(g.byTo, r.to, r)
	}
}

func (g *Graph) moveRelationTarget(r *Relation, target *Asset) {
	if r.to != nil {
		removeFrom(g.byTo, r.to, r)
	}
	r.to = target
	if _, ok := g.relations[r]; ok {
		addTo(g.byTo, target, r)
	}
}

func (g *Graph) moveAsset(a *Asset, newURL string) {
	if a.url != "" && g.byURL[a.url] == a {
		delete(g.byURL, a.url)
	}
	g.byURL[newURL] = a
}

// adoptRelation registers a relation attached programmatically. Its target
// is resolved synchronously: an asset with the same URL already in the
// graph is reused, otherwise the target joins the graph.
func (g *Graph) adoptRelation(r *Relation) error {
	if t := r.to; t != nil && t.graph != g {
		switch {
		case t.graph != nil:
			return agerrors.New(agerrors.ErrCodeUsage, "target belongs to another graph").WithAsset(t.String())
		case !t.inline && t.url != "":
			if existing, ok := g.byURL[t.url]; ok {
				r.to = existing
				break
			}
			g.register(t)
			if err := g.discoverFrom(t); err != nil {
				return err
			}
		default:
			g.register(t)
			if err := g.discoverFrom(t); err != nil {
				return err
			}
		}
	}
	g.addRelation(r)
	return nil
}

// dropOutgoing removes the relations of a and their inline children, so
// that discovery can run again.
func (g *Graph) dropOutgoing(a *Asset) {
	var children []*Asset
	for _, r := range a.outgoing {
		if r.state == Attached {
			r.rawHref = r.Href()
			r.state = Detached
			r.point = nil
		}
		g.removeRelation(r)
		if r.to != nil && r.to.inline && r.to.graph == g && len(g.byTo[r.to]) == 0 {
			children = append(children, r.to)
		}
	}
	a.outgoing = nil
	a.discovered = false
	a.populated = false
	g.removeAssets(children)
}

// removeAssets removes assets and cascades to inline children left without
// an owner.
func (g *Graph) removeAssets(seed []*Asset) {
	queue := append([]*Asset(nil), seed...)
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if a.graph != g {
			continue
		}
		for _, r := range a.outgoing {
			g.removeRelation(r)
			if r.to != nil && r.to.inline && r.to.graph == g && len(g.byTo[r.to]) == 0 {
				queue = append(queue, r.to)
			}
		}
		for r := range g.byTo[a] {
			g.removeRelation(r)
			if r.from != nil {
				r.from.removeRelation(r)
			}
		}
		delete(g.byTo, a)
		delete(g.assets, a)
		delete(g.byID, a.id)
		if a.url != "" && g.byURL[a.url] == a {
			delete(g.byURL, a.url)
		}
		a.graph = nil
	}
}

// fetch loads url through the graph's loader. Concurrent fetches of the
// same URL share one load.
func (g *Graph) fetch(ctx context.Context, url string) (*loader.Resource, error) {
	v, err, _ := g.flight.Do(url, func() (any, error) {
		return g.loader.Load(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.(*loader.Resource), nil
}

func addTo[K comparable](m map[K]map[*Relation]struct{}, k K, r *Relation) {
	set, ok := m[k]
	if !ok {
		set = make(map[*Relation]struct{})
		m[k] = set
	}
	set[r] = struct{}{}
}

func removeFrom[K comparable](m map[K]map[*Relation]struct{}, k K, r *Relation) {
	if set, ok := m[k]; ok {
		delete(set, r)
		if len(set) == 0 {
			delete(m, k)
		}
	}
}
