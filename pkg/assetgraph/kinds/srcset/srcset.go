// Package srcset implements the SrcSet kind, the value of an img or
// source srcset attribute.
package srcset

import (
	"fmt"
	"strings"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
)

// Entry is one image candidate.
type Entry struct {
	URL        string
	Descriptor string // "2x", "100w", or ""
}

// SrcSet is the tree of a SrcSet asset.
type SrcSet struct {
	Entries  []*Entry
	Problems []error
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' }

// Parse splits a srcset value into candidates. Candidates without a URL
// are recorded as problems and skipped.
func Parse(text string) *SrcSet {
	s := &SrcSet{}
	i := 0
	for i < len(text) {
		for i < len(text) && (isSpace(text[i]) || text[i] == ',') {
			i++
		}
		if i >= len(text) {
			break
		}
		start := i
		for i < len(text) && !isSpace(text[i]) {
			i++
		}
		u := text[start:i]
		descEnd := i
		if strings.HasSuffix(u, ",") {
			u = strings.TrimRight(u, ",")
		} else {
			for descEnd < len(text) && text[descEnd] != ',' {
				descEnd++
			}
		}
		desc := strings.TrimSpace(text[i:descEnd])
		i = descEnd
		if u == "" {
			s.Problems = append(s.Problems, agerrors.New(agerrors.ErrCodeSyntax, "srcset candidate without url: %q", desc))
			continue
		}
		s.Entries = append(s.Entries, &Entry{URL: u, Descriptor: desc})
	}
	return s
}

// String serializes the candidates.
func (s *SrcSet) String() string {
	parts := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Descriptor != "" {
			parts = append(parts, e.URL+" "+e.Descriptor)
		} else {
			parts = append(parts, e.URL)
		}
	}
	return strings.Join(parts, ", ")
}

func (s *SrcSet) index(e *Entry) int {
	for i, x := range s.Entries {
		if x == e {
			return i
		}
	}
	return -1
}

func tree(t any) (*SrcSet, error) {
	s, ok := t.(*SrcSet)
	if !ok || s == nil {
		return nil, fmt.Errorf("srcset: unexpected tree %T", t)
	}
	return s, nil
}

func entry(p assetgraph.Point) (*Entry, error) {
	e, ok := p.(*Entry)
	if !ok || e == nil {
		return nil, fmt.Errorf("srcset: unexpected attachment point %T", p)
	}
	return e, nil
}

// Kind is the SrcSet kind. It only exists inline.
var Kind = &assetgraph.Kind{
	Name:            "SrcSet",
	ContentType:     "text/x-srcset",
	DefaultEncoding: "utf-8",
	Parse:           func(text string) (any, error) { return Parse(text), nil },
	Serialize: func(t any) (string, error) {
		s, err := tree(t)
		if err != nil {
			return "", err
		}
		return s.String(), nil
	},
	FindRelations: func(t any, report func(error)) []assetgraph.Descriptor {
		s, err := tree(t)
		if err != nil {
			report(err)
			return nil
		}
		for _, p := range s.Problems {
			report(p)
		}
		out := make([]assetgraph.Descriptor, 0, len(s.Entries))
		for _, e := range s.Entries {
			out = append(out, assetgraph.Descriptor{Type: EntryRelation.Name, Href: e.URL, Point: e})
		}
		return out
	},
}

// EntryRelation is the relation from a srcset to one of its images.
var EntryRelation = &assetgraph.RelationType{
	Name:         "SrcSetEntry",
	Capabilities: assetgraph.AllCapabilities,
	Href: func(_ any, p assetgraph.Point) string {
		if e, err := entry(p); err == nil {
			return e.URL
		}
		return ""
	},
	SetHref: func(_ any, p assetgraph.Point, h string) error {
		e, err := entry(p)
		if err != nil {
			return err
		}
		e.URL = h
		return nil
	},
	Attach: func(t any, pos assetgraph.Position, adjacent assetgraph.Point, h string) (assetgraph.Point, error) {
		s, err := tree(t)
		if err != nil {
			return nil, err
		}
		e := &Entry{URL: h}
		i := len(s.Entries)
		switch pos {
		case assetgraph.First:
			i = 0
		case assetgraph.Before, assetgraph.After:
			adj, err := entry(adjacent)
			if err != nil {
				return nil, err
			}
			if i = s.index(adj); i < 0 {
				return nil, fmt.Errorf("srcset: adjacent entry not in srcset")
			}
			if pos == assetgraph.After {
				i++
			}
		}
		s.Entries = append(s.Entries, nil)
		copy(s.Entries[i+1:], s.Entries[i:])
		s.Entries[i] = e
		return e, nil
	},
	Detach: func(t any, p assetgraph.Point) error {
		s, err := tree(t)
		if err != nil {
			return err
		}
		e, err := entry(p)
		if err != nil {
			return err
		}
		i := s.index(e)
		if i < 0 {
			return fmt.Errorf("srcset: entry not in srcset")
		}
		s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
		return nil
	},
	Inline: func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
		e, err := entry(p)
		if err != nil {
			return nil, err
		}
		u, err := target.DataURL()
		if err != nil {
			return nil, err
		}
		e.URL = u
		return e, nil
	},
}

// Kinds lists the kinds of this package.
func Kinds() []*assetgraph.Kind { return []*assetgraph.Kind{Kind} }

// Relations lists the relation types of this package.
func Relations() []*assetgraph.RelationType { return []*assetgraph.RelationType{EntryRelation} }
