package assetgraph

import (
	"regexp"
	"slices"

	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// AssetQuery selects assets. Zero fields match everything.
type AssetQuery struct {
	Type     string         // kind name
	URL      string         // URL, compared after canonicalization
	URLMatch *regexp.Regexp // URL pattern
	Inline   *bool
	Loaded   *bool
	Match    func(*Asset) bool
}

// Bool returns a pointer to b, for the optional fields of queries.
func Bool(b bool) *bool { return &b }

func (q AssetQuery) matches(a *Asset) bool {
	if q.URL != "" {
		q.URL = urltools.Canonical(q.URL)
	}
	switch {
	case q.Type != "" && a.kind.Name != q.Type:
		return false
	case q.URL != "" && a.url != q.URL:
		return false
	case q.URLMatch != nil && !q.URLMatch.MatchString(a.url):
		return false
	case q.Inline != nil && a.inline != *q.Inline:
		return false
	case q.Loaded != nil && a.IsLoaded() != *q.Loaded:
		return false
	case q.Match != nil && !q.Match(a):
		return false
	}
	return true
}

// FindAssets returns the assets matching q in insertion order.
func (g *Graph) FindAssets(q AssetQuery) []*Asset {
	var out []*Asset
	if q.URL != "" {
		if a, ok := g.byURL[urltools.Canonical(q.URL)]; ok && q.matches(a) {
			out = append(out, a)
		}
		return out
	}
	for a := range g.assets {
		if q.matches(a) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y *Asset) int { return cmpSeq(x.seq, y.seq) })
	return out
}

// RelationQuery selects relations. Zero fields match everything.
type RelationQuery struct {
	Type     string // relation type name
	From     *Asset
	To       *Asset
	FromType string // kind name of the owner
	ToType   string // kind name of the target
	Href     string // exact href
	Match    func(*Relation) bool
}

func (q RelationQuery) matches(r *Relation) bool {
	switch {
	case q.Type != "" && r.typ.Name != q.Type:
		return false
	case q.From != nil && r.from != q.From:
		return false
	case q.To != nil && r.to != q.To:
		return false
	case q.FromType != "" && (r.from == nil || r.from.kind.Name != q.FromType):
		return false
	case q.ToType != "" && (r.to == nil || r.to.kind.Name != q.ToType):
		return false
	case q.Href != "" && r.Href() != q.Href:
		return false
	case q.Match != nil && !q.Match(r):
		return false
	}
	return true
}

// FindRelations returns the relations matching q in the order they were
// registered. Relations whose target is not loaded (excluded by the
// population predicate, failed, or not fetched yet) are only returned when
// includeUnresolved is set.
func (g *Graph) FindRelations(q RelationQuery, includeUnresolved bool) []*Relation {
	var candidates map[*Relation]struct{}
	switch {
	case q.To != nil:
		candidates = g.byTo[q.To]
	case q.Type != "":
		candidates = g.byType[q.Type]
	case q.From != nil:
		candidates = make(map[*Relation]struct{}, len(q.From.outgoing))
		for _, r := range q.From.outgoing {
			if _, ok := g.relations[r]; ok {
				candidates[r] = struct{}{}
			}
		}
	default:
		candidates = g.relations
	}

	var out []*Relation
	for r := range candidates {
		if !includeUnresolved && !r.IsResolved() {
			continue
		}
		if q.matches(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(x, y *Relation) int { return cmpSeq(x.seq, y.seq) })
	return out
}

func cmpSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
