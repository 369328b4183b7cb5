package assetgraph

import (
	"slices"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/loader"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// State is the lifecycle state of a relation.
type State int

const (
	// Unattached relations were created programmatically and have no
	// attachment point yet.
	Unattached State = iota
	// Attached relations are materialized in their owner's tree.
	Attached
	// Detached relations were removed from the tree and may be attached again.
	Detached
	// Inlined relations were replaced by a relation to an inline copy.
	Inlined
)

func (s State) String() string {
	switch s {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	case Inlined:
		return "inlined"
	default:
		return "unattached"
	}
}

// Relation is a typed reference from one asset to another, materialized at
// an attachment point in the owner's tree.
type Relation struct {
	typ      *RelationType
	from     *Asset
	to       *Asset
	point    Point
	state    State
	hrefType urltools.HrefType
	fragment string
	excluded bool
	seq      uint64

	// rawHref is the href while there is no live attachment point.
	rawHref string
	// detachedFrom is the target URL when the relation was detached.
	detachedFrom string
}

// NewRelation creates an unattached relation of type t pointing at to.
// Call [Relation.Attach] to materialize it.
func NewRelation(t *RelationType, to *Asset) *Relation {
	r := &Relation{typ: t, to: to, hrefType: urltools.HrefRelative}
	if to != nil && to.inline {
		r.hrefType = urltools.HrefInline
	}
	return r
}

// Type returns the relation type name ("HtmlStyle").
func (r *Relation) Type() string { return r.typ.Name }

// RelationType returns the relation type table.
func (r *Relation) RelationType() *RelationType { return r.typ }

// From returns the owning asset.
func (r *Relation) From() *Asset { return r.from }

// To returns the target asset.
func (r *Relation) To() *Asset { return r.to }

// State returns the lifecycle state.
func (r *Relation) State() State { return r.state }

// Point returns the attachment point, nil unless attached.
func (r *Relation) Point() Point { return r.point }

// HrefType returns how the href addresses its target.
func (r *Relation) HrefType() urltools.HrefType { return r.hrefType }

// Fragment returns the fragment identifier of the href, including '#'.
func (r *Relation) Fragment() string { return r.fragment }

// Excluded reports whether population skipped the target.
func (r *Relation) Excluded() bool { return r.excluded }

// IsResolved reports whether the target is loaded.
func (r *Relation) IsResolved() bool { return r.to != nil && r.to.IsLoaded() }

// Href returns the reference as written in the owner.
func (r *Relation) Href() string {
	if r.state != Attached || r.typ.Href == nil {
		return r.rawHref
	}
	tree, err := r.from.Tree()
	if err != nil || tree == nil {
		return r.rawHref
	}
	return r.typ.Href(tree, r.point)
}

// SetHref writes href into the attachment point and retargets the
// relation to the asset the href resolves to.
func (r *Relation) SetHref(href string) error {
	if r.typ.SetHref == nil {
		return unsupported(r, "set href")
	}
	if r.state == Inlined {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot set href of an inlined %s", r.typ.Name)
	}
	var data *loader.Resource
	if urltools.IsData(href) {
		res, err := loader.ParseDataURL(href)
		if err != nil {
			return agerrors.Wrap(agerrors.ErrCodeInvalidURL, err, "set href of %s", r.typ.Name)
		}
		data = res
	}
	if err := r.writeHref(href); err != nil {
		return err
	}
	if r.from == nil {
		return nil
	}
	old := r.to
	if data != nil {
		child, err := NewAsset(r.from.reg, Config{ContentType: data.ContentType, Encoding: data.Charset, Raw: data.Data, Inline: true})
		if err != nil {
			return err
		}
		r.fragment = ""
		r.hrefType = urltools.HrefInline
		r.retarget(child)
		child.incoming = r
		if g := r.from.graph; g != nil {
			g.register(child)
			if err := g.discoverFrom(child); err != nil {
				return err
			}
		}
	} else {
		plain, frag := urltools.SplitFragment(href)
		r.fragment = frag
		r.hrefType = urltools.HrefTypeOf(href)
		target, err := r.from.resolveTarget(r, plain)
		if err != nil {
			return err
		}
		if target != r.to {
			r.retarget(target)
		}
	}
	r.dropOrphan(old)
	return nil
}

// dropOrphan removes a former inline target that r no longer embeds.
func (r *Relation) dropOrphan(old *Asset) {
	if old == nil || old == r.to || !old.inline || old.incoming != r {
		return
	}
	old.incoming = nil
	if g := old.graph; g != nil && len(g.byTo[old]) == 0 {
		g.removeAssets([]*Asset{old})
	}
}

// SetHrefType changes how the href addresses its target and rewrites it.
func (r *Relation) SetHrefType(t urltools.HrefType) error {
	if t == urltools.HrefInline {
		_, err := r.Inline()
		return err
	}
	r.hrefType = t
	return r.refreshHref()
}

// Attach materializes the relation in from's tree at pos, relative to
// adjacent when pos is Before or After.
func (r *Relation) Attach(from *Asset, pos Position, adjacent *Relation) error {
	if !r.typ.Capabilities.CanAttach || r.typ.Attach == nil {
		return unsupported(r, "attach")
	}
	if r.state == Attached || r.state == Inlined {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot attach a relation that is %s", r.state)
	}
	if from == nil {
		return agerrors.New(agerrors.ErrCodeUsage, "attach needs an owner")
	}
	var adjPoint Point
	if pos == Before || pos == After {
		if adjacent == nil || adjacent.from != from || adjacent.state != Attached {
			return agerrors.New(agerrors.ErrCodeUsage, "position %s needs an attached adjacent relation of the same owner", pos)
		}
		adjPoint = adjacent.point
	}
	if err := from.ensureRelations(); err != nil {
		return err
	}
	tree, err := from.Tree()
	if err != nil {
		return err
	}

	r.from = from
	href := ""
	if r.to != nil && !r.to.inline {
		if r.state == Detached && r.detachedFrom == r.to.url && r.rawHref != "" {
			href = r.rawHref
		} else {
			href = r.computeHref()
		}
	}
	p, err := r.typ.Attach(tree, pos, adjPoint, href)
	if err != nil {
		return agerrors.Wrap(agerrors.ErrCodeUsage, err, "attach %s", r.typ.Name).WithAsset(from.String())
	}
	if r.to != nil && r.to.inline {
		r.to.incoming = r
		if r.typ.Inline != nil {
			if p, err = r.typ.Inline(tree, p, r.to); err != nil {
				return agerrors.Wrap(agerrors.ErrCodeUsage, err, "attach %s", r.typ.Name).WithAsset(from.String())
			}
		}
	}
	r.point = p
	r.state = Attached
	r.rawHref = ""
	from.insertRelation(r, pos, adjacent)
	if from.graph != nil {
		if err := from.graph.adoptRelation(r); err != nil {
			return err
		}
	}
	from.treeChanged()
	return nil
}

// Detach removes the attachment point from the owner's tree. The relation
// keeps its target and can be attached again.
func (r *Relation) Detach() error {
	if !r.typ.Capabilities.CanDetach || r.typ.Detach == nil {
		return unsupported(r, "detach")
	}
	if r.state != Attached {
		return agerrors.New(agerrors.ErrCodeUsage, "cannot detach a relation that is %s", r.state)
	}
	tree, err := r.from.Tree()
	if err != nil {
		return err
	}
	href := r.Href()
	if err := r.typ.Detach(tree, r.point); err != nil {
		return agerrors.Wrap(agerrors.ErrCodeUsage, err, "detach %s", r.typ.Name).WithAsset(r.from.String())
	}
	r.rawHref = href
	if r.to != nil {
		r.detachedFrom = r.to.url
	}
	r.point = nil
	r.state = Detached
	r.from.removeRelation(r)
	if g := r.from.graph; g != nil {
		g.removeRelation(r)
		if r.to != nil && r.to.inline {
			g.removeAssets([]*Asset{r.to})
		}
	}
	r.from.treeChanged()
	return nil
}

// Inline replaces the external reference with an inline copy of the
// target. The relation becomes Inlined and the new relation to the copy is
// returned.
func (r *Relation) Inline() (*Relation, error) {
	if !r.typ.Capabilities.CanInline || r.typ.Inline == nil {
		return nil, unsupported(r, "inline")
	}
	if r.state != Attached {
		return nil, agerrors.New(agerrors.ErrCodeUsage, "cannot inline a relation that is %s", r.state)
	}
	if r.to == nil || !r.to.IsLoaded() {
		return nil, agerrors.New(agerrors.ErrCodeUsage, "cannot inline an unloaded target").WithAsset(r.from.String())
	}
	if r.to.inline {
		return r, nil
	}
	src := r.to
	cfg := Config{Kind: src.kind.Name, ContentType: src.contentType, Encoding: src.encoding, Inline: true}
	if src.kind.Binary {
		raw, err := src.Raw()
		if err != nil {
			return nil, err
		}
		cfg.Raw = raw
	} else {
		text, err := src.Text()
		if err != nil {
			return nil, err
		}
		cfg.Text = text
	}
	child, err := NewAsset(src.reg, cfg)
	if err != nil {
		return nil, err
	}

	tree, err := r.from.Tree()
	if err != nil {
		return nil, err
	}
	nr := &Relation{typ: r.typ, from: r.from, to: child, hrefType: urltools.HrefInline, state: Attached}
	child.incoming = nr
	oldHref := r.Href()
	p, err := r.typ.Inline(tree, r.point, child)
	if err != nil {
		return nil, agerrors.Wrap(agerrors.ErrCodeUsage, err, "inline %s", r.typ.Name).WithAsset(r.from.String())
	}
	nr.point = p

	from := r.from
	if i := slices.Index(from.outgoing, r); i >= 0 {
		from.outgoing[i] = nr
	} else {
		from.outgoing = append(from.outgoing, nr)
	}
	r.rawHref = oldHref
	r.state = Inlined
	r.point = nil
	if g := from.graph; g != nil {
		g.removeRelation(r)
		g.register(child)
		g.addRelation(nr)
	}

	// Discover the copy's references against the original location, then
	// rewrite them relative to the new base.
	child.baseOverride = src.url
	err = child.ensureRelations()
	child.baseOverride = ""
	if err != nil {
		return nil, err
	}
	if err := child.refreshReferences(); err != nil {
		return nil, err
	}
	from.treeChanged()
	return nr, nil
}

// writeHref stores href at the attachment point, or in the relation when
// it is not attached.
func (r *Relation) writeHref(href string) error {
	if r.state != Attached {
		r.rawHref = href
		return nil
	}
	tree, err := r.from.Tree()
	if err != nil {
		return err
	}
	if err := r.typ.SetHref(tree, r.point, href); err != nil {
		return agerrors.Wrap(agerrors.ErrCodeUsage, err, "set href of %s", r.typ.Name).WithAsset(r.from.String())
	}
	r.from.treeChanged()
	return nil
}

// externalize replaces the embedded copy at the attachment point with a
// reference to r.to, which has just been given a URL.
func (r *Relation) externalize() error {
	tree, err := r.from.Tree()
	if err != nil {
		return err
	}
	href := r.computeHref()
	if r.typ.Externalize != nil {
		p, err := r.typ.Externalize(tree, r.point, href)
		if err != nil {
			return agerrors.Wrap(agerrors.ErrCodeUsage, err, "externalize %s", r.typ.Name).WithAsset(r.from.String())
		}
		r.point = p
	} else if err := r.typ.SetHref(tree, r.point, href); err != nil {
		return agerrors.Wrap(agerrors.ErrCodeUsage, err, "set href of %s", r.typ.Name).WithAsset(r.from.String())
	}
	r.from.treeChanged()
	return nil
}

// refreshHref recomputes the href from the target URL and the href type.
func (r *Relation) refreshHref() error {
	if r.to == nil || r.to.inline || r.from == nil || r.typ.SetHref == nil {
		return nil
	}
	href := r.computeHref()
	if href == r.Href() {
		return nil
	}
	return r.writeHref(href)
}

// computeHref builds the href addressing r.to from r.from's base.
func (r *Relation) computeHref() string {
	if r.to == nil || r.to.url == "" {
		return r.rawHref
	}
	if r.hrefType == urltools.HrefRelative && r.fragment != "" && r.from != nil && r.from.NonInlineAncestor() == r.to {
		return r.fragment
	}
	base := ""
	if r.from != nil {
		base = r.from.BaseURL()
	}
	return urltools.BuildHref(base, r.to.url+r.fragment, r.hrefType)
}

// retarget points r at target, keeping the graph indices current.
func (r *Relation) retarget(target *Asset) {
	if r.from != nil && r.from.graph != nil && r.state == Attached {
		r.from.graph.moveRelationTarget(r, target)
		return
	}
	r.to = target
}

// insertRelation places r among a's outgoing relations.
func (a *Asset) insertRelation(r *Relation, pos Position, adjacent *Relation) {
	a.removeRelation(r)
	switch pos {
	case First:
		a.outgoing = slices.Insert(a.outgoing, 0, r)
	case Before, After:
		i := slices.Index(a.outgoing, adjacent)
		if i < 0 {
			a.outgoing = append(a.outgoing, r)
			return
		}
		if pos == After {
			i++
		}
		a.outgoing = slices.Insert(a.outgoing, i, r)
	default:
		a.outgoing = append(a.outgoing, r)
	}
}

func (a *Asset) removeRelation(r *Relation) {
	if i := slices.Index(a.outgoing, r); i >= 0 {
		a.outgoing = slices.Delete(a.outgoing, i, i+1)
	}
}

func unsupported(r *Relation, op string) error {
	return agerrors.New(agerrors.ErrCodeUnsupported, "%s does not support %s", r.typ.Name, op)
}
