// Package js implements the JavaScript kind. Scripts are split into
// segments: static import specifiers and sourceMappingURL comments are
// addressable, everything else is kept verbatim.
package js

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// SegmentKind identifies what a segment of a script holds.
type SegmentKind int

const (
	RawSegment SegmentKind = iota
	// ImportSegment is an import or export-from statement up to and
	// including the closing quote of its specifier.
	ImportSegment
	// SourceMapSegment is a //# sourceMappingURL= line comment.
	SourceMapSegment
)

// Segment is one piece of a script.
type Segment struct {
	Kind   SegmentKind
	Text   string // verbatim text of a RawSegment
	Prefix string // statement text before the specifier
	Href   string
	Quote  string
	Source string // parsed text, written back until the segment changes
}

// Script is the tree of a JavaScript asset.
type Script struct {
	Segments []*Segment
}

func (s *Script) index(seg *Segment) int {
	for i, x := range s.Segments {
		if x == seg {
			return i
		}
	}
	return -1
}

func (s *Script) insert(i int, seg ...*Segment) {
	tail := append([]*Segment{}, s.Segments[i:]...)
	s.Segments = append(append(s.Segments[:i], seg...), tail...)
}

// Parse splits text into segments. Regular expression literals are not
// recognised; a quote inside one can hide a following import.
func Parse(text string) (*Script, error) {
	var (
		segs     []*Segment
		rawStart int
	)
	emit := func(start, end int, seg *Segment) {
		if start > rawStart {
			segs = append(segs, &Segment{Kind: RawSegment, Text: text[rawStart:start]})
		}
		seg.Source = text[start:end]
		segs = append(segs, seg)
		rawStart = end
	}
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case strings.HasPrefix(text[i:], "//"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			if m := sourceMapComment.FindStringSubmatch(text[i : i+end]); m != nil {
				emit(i, i+end, &Segment{Kind: SourceMapSegment, Href: m[1]})
			}
			i += end
		case strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				i = len(text)
				continue
			}
			i += end + 4
		case c == '"' || c == '\'' || c == '`':
			i = skipString(text, i)
		case (c == 'i' || c == 'e') && (i == 0 || !isIdentChar(text[i-1]) && text[i-1] != '.'):
			if end, seg, ok := parseImport(text, i); ok {
				emit(i, end, seg)
				i = end
				continue
			}
			i++
		default:
			i++
		}
	}
	if rawStart < len(text) {
		segs = append(segs, &Segment{Kind: RawSegment, Text: text[rawStart:]})
	}
	return &Script{Segments: segs}, nil
}

var (
	sourceMapComment = regexp.MustCompile(`^//\s*[#@]\s*sourceMappingURL=\s*(\S*)\s*$`)
	importStatement  = regexp.MustCompile(`^(?:import\s*(?:[\w$*{][^;'"]*?\s*from\s*)?|export\s*(?:\*(?:\s*as\s+[\w$]+)?|\{[^}]*\})\s*from\s*)(["'])`)
)

// parseImport matches a static import or export-from statement at i.
func parseImport(text string, i int) (int, *Segment, bool) {
	if i+6 < len(text) && isIdentChar(text[i+6]) {
		return 0, nil, false
	}
	loc := importStatement.FindStringSubmatchIndex(text[i:])
	if loc == nil {
		return 0, nil, false
	}
	q := loc[2] + i
	end := skipString(text, q)
	if end > len(text) || end-1 <= q || text[end-1] != text[q] {
		return 0, nil, false
	}
	return end, &Segment{
		Kind:   ImportSegment,
		Prefix: text[i:q],
		Href:   text[q+1 : end-1],
		Quote:  string(text[q]),
	}, true
}

func skipString(text string, i int) int {
	q := text[i]
	j := i + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			j += 2
			continue
		case '\n':
			if q != '`' {
				return j
			}
		case q:
			return j + 1
		}
		j++
	}
	return len(text)
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

// Serialize concatenates the segments.
func Serialize(s *Script) string {
	var b strings.Builder
	for _, seg := range s.Segments {
		if seg.Kind != RawSegment && seg.Source != "" {
			b.WriteString(seg.Source)
			continue
		}
		switch seg.Kind {
		case RawSegment:
			b.WriteString(seg.Text)
		case ImportSegment:
			b.WriteString(seg.Prefix + seg.Quote + seg.Href + seg.Quote)
		case SourceMapSegment:
			b.WriteString("//# sourceMappingURL=" + seg.Href)
		}
	}
	return b.String()
}

// Kind is the JavaScript kind.
var Kind = &assetgraph.Kind{
	Name:            "JavaScript",
	ContentType:     "application/javascript",
	AltContentTypes: []string{"text/javascript", "application/x-javascript", "text/ecmascript"},
	Extensions:      []string{".js", ".mjs", ".cjs"},
	DefaultEncoding: "utf-8",
	Parse:           func(text string) (any, error) { return Parse(text) },
	Serialize: func(tree any) (string, error) {
		s, err := script(tree)
		if err != nil {
			return "", err
		}
		return Serialize(s), nil
	},
	FindRelations: func(tree any, report func(error)) []assetgraph.Descriptor {
		s, err := script(tree)
		if err != nil {
			report(err)
			return nil
		}
		var out []assetgraph.Descriptor
		for _, seg := range s.Segments {
			switch seg.Kind {
			case ImportSegment:
				out = append(out, assetgraph.Descriptor{Type: StaticImport.Name, Href: seg.Href, Point: seg})
			case SourceMapSegment:
				out = append(out, assetgraph.Descriptor{Type: SourceMappingURL.Name, Href: seg.Href, Point: seg})
			}
		}
		return out
	},
}

func script(tree any) (*Script, error) {
	s, ok := tree.(*Script)
	if !ok || s == nil {
		return nil, fmt.Errorf("js: unexpected tree %T", tree)
	}
	return s, nil
}

func segment(p assetgraph.Point) (*Segment, error) {
	s, ok := p.(*Segment)
	if !ok || s == nil {
		return nil, fmt.Errorf("js: unexpected attachment point %T", p)
	}
	return s, nil
}

func href(_ any, p assetgraph.Point) string {
	if s, err := segment(p); err == nil {
		return s.Href
	}
	return ""
}

func setHref(_ any, p assetgraph.Point, h string) error {
	s, err := segment(p)
	if err != nil {
		return err
	}
	if s.Kind == ImportSegment && strings.Contains(h, s.Quote) {
		h = strings.ReplaceAll(h, s.Quote, `\`+s.Quote)
	}
	if h == s.Href && s.Source != "" {
		return nil
	}
	s.Href = h
	s.Source = ""
	return nil
}

func inlineAsDataURL(tree any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
	u, err := target.DataURL()
	if err != nil {
		return nil, err
	}
	return p, setHref(tree, p, u)
}

func detach(tree any, p assetgraph.Point) error {
	s, err := script(tree)
	if err != nil {
		return err
	}
	seg, err := segment(p)
	if err != nil {
		return err
	}
	i := s.index(seg)
	if i < 0 {
		return fmt.Errorf("js: segment not in script")
	}
	s.Segments = append(s.Segments[:i], s.Segments[i+1:]...)
	if i < len(s.Segments) && s.Segments[i].Kind == RawSegment {
		next := s.Segments[i]
		next.Text = strings.TrimPrefix(strings.TrimPrefix(next.Text, ";"), "\n")
	}
	return nil
}

func attachImport(tree any, pos assetgraph.Position, adjacent assetgraph.Point, h string) (assetgraph.Point, error) {
	s, err := script(tree)
	if err != nil {
		return nil, err
	}
	seg := &Segment{Kind: ImportSegment, Prefix: "import ", Href: h, Quote: `"`}
	if pos == assetgraph.Last {
		// Last means after the final import, or first when there is none.
		pos = assetgraph.First
		for _, x := range s.Segments {
			if x.Kind == ImportSegment {
				pos, adjacent = assetgraph.After, x
			}
		}
	}
	i := 0
	if pos == assetgraph.Before || pos == assetgraph.After {
		adj, err := segment(adjacent)
		if err != nil {
			return nil, err
		}
		if i = s.index(adj); i < 0 {
			return nil, fmt.Errorf("js: adjacent segment not in script")
		}
	}
	if pos != assetgraph.After {
		s.insert(i, seg, &Segment{Kind: RawSegment, Text: ";\n"})
		return seg, nil
	}

	// Insert after the line holding the adjacent statement's terminator.
	i++
	if i >= len(s.Segments) || s.Segments[i].Kind != RawSegment {
		s.insert(i, &Segment{Kind: RawSegment, Text: ";\n"}, seg, &Segment{Kind: RawSegment, Text: ";"})
		return seg, nil
	}
	next := s.Segments[i]
	cut := strings.IndexByte(next.Text, '\n')
	if cut < 0 {
		s.insert(i+1, &Segment{Kind: RawSegment, Text: "\n"}, seg, &Segment{Kind: RawSegment, Text: ";"})
		return seg, nil
	}
	head, rest := next.Text[:cut+1], next.Text[cut+1:]
	s.Segments[i] = &Segment{Kind: RawSegment, Text: head}
	tail := []*Segment{seg, {Kind: RawSegment, Text: ";\n"}}
	if rest != "" {
		tail = append(tail, &Segment{Kind: RawSegment, Text: rest})
	}
	s.insert(i+1, tail...)
	return seg, nil
}

func attachSourceMap(tree any, _ assetgraph.Position, _ assetgraph.Point, h string) (assetgraph.Point, error) {
	s, err := script(tree)
	if err != nil {
		return nil, err
	}
	if n := len(s.Segments); n > 0 {
		last := s.Segments[n-1]
		if last.Kind != RawSegment || !strings.HasSuffix(last.Text, "\n") {
			s.Segments = append(s.Segments, &Segment{Kind: RawSegment, Text: "\n"})
		}
	}
	seg := &Segment{Kind: SourceMapSegment, Href: h}
	s.Segments = append(s.Segments, seg)
	return seg, nil
}

var (
	// StaticImport is an import or export-from specifier.
	StaticImport = &assetgraph.RelationType{
		Name:         "JavaScriptStaticImport",
		TargetKind:   "JavaScript",
		Capabilities: assetgraph.AllCapabilities,
		Href:         href,
		SetHref:      setHref,
		Attach:       attachImport,
		Detach:       detach,
		Inline:       inlineAsDataURL,
	}

	// SourceMappingURL is a sourceMappingURL comment.
	SourceMappingURL = &assetgraph.RelationType{
		Name:         "JavaScriptSourceMappingUrl",
		TargetKind:   "SourceMap",
		Capabilities: assetgraph.AllCapabilities,
		Href:         href,
		SetHref:      setHref,
		Attach:       attachSourceMap,
		Detach:       detach,
		Inline:       inlineAsDataURL,
	}
)

// Kinds lists the kinds of this package.
func Kinds() []*assetgraph.Kind { return []*assetgraph.Kind{Kind} }

// Relations lists the relation types of this package.
func Relations() []*assetgraph.RelationType {
	return []*assetgraph.RelationType{StaticImport, SourceMappingURL}
}
