// Package cachemanifest implements the CacheManifest kind (HTML5
// application cache manifests).
package cachemanifest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
)

// Section names.
const (
	Cache    = "CACHE"
	Network  = "NETWORK"
	Fallback = "FALLBACK"
)

// Entry is one non-blank line of a section.
type Entry struct {
	Comment string   // text after '#' for comment lines
	Tokens  []string // nil for comment lines
	Line    int
}

// IsComment reports whether the entry is a comment line.
func (e *Entry) IsComment() bool { return e.Tokens == nil }

// Section is a named list of entries.
type Section struct {
	Name    string
	Entries []*Entry
}

// Manifest is the tree of a CacheManifest asset.
type Manifest struct {
	Sections []*Section
	Problems []error
}

// Section returns the section called name, creating it if create is set.
func (m *Manifest) Section(name string, create bool) *Section {
	for _, s := range m.Sections {
		if s.Name == name {
			return s
		}
	}
	if !create {
		return nil
	}
	s := &Section{Name: name}
	m.Sections = append(m.Sections, s)
	return s
}

var (
	lineSplit     = regexp.MustCompile(`\r?\n|\n?\r`)
	sectionHeader = regexp.MustCompile(`^(CACHE|NETWORK|FALLBACK):\s*$`)
	blankLine     = regexp.MustCompile(`^\s*$`)
	commentLine   = regexp.MustCompile(`^\s*#`)
)

// Parse reads a manifest. Malformed lines are recorded in Problems and
// left out of the tree.
func Parse(text string) *Manifest {
	m := &Manifest{}
	current := Cache
	for i, line := range lineSplit.Split(text, -1) {
		lineNo := i + 1
		if i == 0 {
			if line == "CACHE MANIFEST" {
				continue
			}
			m.Problems = append(m.Problems, agerrors.New(agerrors.ErrCodeSyntax, `the first line of the cache manifest is not "CACHE MANIFEST"`).WithLine(lineNo))
		}
		if sm := sectionHeader.FindStringSubmatch(line); sm != nil {
			current = sm[1]
			continue
		}
		if blankLine.MatchString(line) {
			continue
		}
		if commentLine.MatchString(line) {
			sec := m.Section(current, true)
			sec.Entries = append(sec.Entries, &Entry{Comment: commentLine.ReplaceAllString(line, ""), Line: lineNo})
			continue
		}
		tokens := strings.Split(strings.TrimSpace(line), " ")
		want := 1
		if current == Fallback {
			want = 2
		}
		if len(tokens) != want {
			m.Problems = append(m.Problems, agerrors.New(agerrors.ErrCodeSyntax, "parse error in section %s: %s", current, line).WithLine(lineNo))
			continue
		}
		sec := m.Section(current, true)
		sec.Entries = append(sec.Entries, &Entry{Tokens: tokens, Line: lineNo})
	}
	return m
}

// String serializes the manifest. The CACHE section comes first without a
// header.
func (m *Manifest) String() string {
	var b strings.Builder
	b.WriteString("CACHE MANIFEST\n")
	writeEntries := func(s *Section) {
		for _, e := range s.Entries {
			if e.IsComment() {
				b.WriteString("#" + e.Comment)
			} else {
				b.WriteString(strings.Join(e.Tokens, " "))
			}
			b.WriteByte('\n')
		}
	}
	if s := m.Section(Cache, false); s != nil {
		writeEntries(s)
	}
	for _, s := range m.Sections {
		if s.Name == Cache || len(s.Entries) == 0 {
			continue
		}
		b.WriteString(s.Name + ":\n")
		writeEntries(s)
	}
	return b.String()
}

func manifest(tree any) (*Manifest, error) {
	m, ok := tree.(*Manifest)
	if !ok || m == nil {
		return nil, fmt.Errorf("cachemanifest: unexpected tree %T", tree)
	}
	return m, nil
}

func entry(p assetgraph.Point) (*Entry, error) {
	e, ok := p.(*Entry)
	if !ok || e == nil || e.IsComment() {
		return nil, fmt.Errorf("cachemanifest: unexpected attachment point %T", p)
	}
	return e, nil
}

// findRelations lists CACHE and FALLBACK entries, sections in alphabetical
// order. A FALLBACK entry points at its offline URL, the last token.
func findRelations(tree any, report func(error)) []assetgraph.Descriptor {
	m, err := manifest(tree)
	if err != nil {
		report(err)
		return nil
	}
	for _, p := range m.Problems {
		report(p)
	}
	sections := append([]*Section{}, m.Sections...)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Name < sections[j].Name })
	var out []assetgraph.Descriptor
	for _, s := range sections {
		if s.Name == Network {
			continue
		}
		for _, e := range s.Entries {
			if e.IsComment() {
				continue
			}
			out = append(out, assetgraph.Descriptor{Type: EntryRelation.Name, Href: e.Tokens[len(e.Tokens)-1], Point: e})
		}
	}
	return out
}

// Kind is the CacheManifest kind.
var Kind = &assetgraph.Kind{
	Name:            "CacheManifest",
	ContentType:     "text/cache-manifest",
	Extensions:      []string{".appcache"},
	DefaultEncoding: "utf-8",
	Parse:           func(text string) (any, error) { return Parse(text), nil },
	Serialize: func(tree any) (string, error) {
		m, err := manifest(tree)
		if err != nil {
			return "", err
		}
		return m.String(), nil
	},
	FindRelations: findRelations,
}

// EntryRelation is a CACHE or FALLBACK entry.
var EntryRelation = &assetgraph.RelationType{
	Name: "CacheManifestEntry",
	Capabilities: assetgraph.Capabilities{
		CanAttach: true,
		CanDetach: true,
	},
	Href: func(_ any, p assetgraph.Point) string {
		e, err := entry(p)
		if err != nil {
			return ""
		}
		return e.Tokens[len(e.Tokens)-1]
	},
	SetHref: func(_ any, p assetgraph.Point, h string) error {
		e, err := entry(p)
		if err != nil {
			return err
		}
		e.Tokens[len(e.Tokens)-1] = h
		return nil
	},
	Attach: func(tree any, pos assetgraph.Position, adjacent assetgraph.Point, h string) (assetgraph.Point, error) {
		m, err := manifest(tree)
		if err != nil {
			return nil, err
		}
		e := &Entry{Tokens: []string{h}}
		sec := m.Section(Cache, true)
		i := len(sec.Entries)
		switch pos {
		case assetgraph.First:
			i = 0
		case assetgraph.Before, assetgraph.After:
			adj, err := entry(adjacent)
			if err != nil {
				return nil, err
			}
			sec, i = locate(m, adj)
			if sec == nil {
				return nil, fmt.Errorf("cachemanifest: adjacent entry not in manifest")
			}
			if pos == assetgraph.After {
				i++
			}
		}
		sec.Entries = append(sec.Entries, nil)
		copy(sec.Entries[i+1:], sec.Entries[i:])
		sec.Entries[i] = e
		return e, nil
	},
	Detach: func(tree any, p assetgraph.Point) error {
		m, err := manifest(tree)
		if err != nil {
			return err
		}
		e, err := entry(p)
		if err != nil {
			return err
		}
		sec, i := locate(m, e)
		if sec == nil {
			return fmt.Errorf("cachemanifest: entry not in manifest")
		}
		sec.Entries = append(sec.Entries[:i], sec.Entries[i+1:]...)
		return nil
	},
}

func locate(m *Manifest, e *Entry) (*Section, int) {
	for _, s := range m.Sections {
		for i, x := range s.Entries {
			if x == e {
				return s, i
			}
		}
	}
	return nil, -1
}

// Kinds lists the kinds of this package.
func Kinds() []*assetgraph.Kind { return []*assetgraph.Kind{Kind} }

// Relations lists the relation types of this package.
func Relations() []*assetgraph.RelationType { return []*assetgraph.RelationType{EntryRelation} }
