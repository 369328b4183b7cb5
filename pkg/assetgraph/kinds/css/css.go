// Package css implements the Css kind: stylesheets kept as a list of
// segments so that references can be rewritten without disturbing the
// surrounding text.
package css

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// Kind is the Css kind.
var Kind = &assetgraph.Kind{
	Name:            "Css",
	ContentType:     "text/css",
	Extensions:      []string{".css"},
	DefaultEncoding: "utf-8",
	Parse:           func(text string) (any, error) { return Parse(text) },
	Serialize: func(tree any) (string, error) {
		st, err := sheet(tree)
		if err != nil {
			return "", err
		}
		return Serialize(st), nil
	},
	FindRelations:  findRelations,
	DetectEncoding: detectCharset,
}

var charsetRule = regexp.MustCompile(`^(?:\xEF\xBB\xBF)?@charset\s+["']([\w.:-]+)["']\s*;`)

func detectCharset(sample []byte) string {
	if m := charsetRule.FindSubmatch(sample); m != nil {
		return string(m[1])
	}
	return ""
}

func findRelations(tree any, report func(error)) []assetgraph.Descriptor {
	st, err := sheet(tree)
	if err != nil {
		report(err)
		return nil
	}
	var out []assetgraph.Descriptor
	for _, s := range st.Segments {
		var typ string
		switch s.Kind {
		case ImportSegment:
			typ = Import.Name
		case URLSegment:
			typ = Image.Name
			if s.Context == InFontFace {
				typ = FontFaceSrc.Name
			}
		case SourceMapSegment:
			typ = SourceMappingURL.Name
		default:
			continue
		}
		out = append(out, assetgraph.Descriptor{Type: typ, Href: s.Href, Point: s})
	}
	return out
}

func sheet(tree any) (*Stylesheet, error) {
	st, ok := tree.(*Stylesheet)
	if !ok || st == nil {
		return nil, fmt.Errorf("css: unexpected tree %T", tree)
	}
	return st, nil
}

func segment(p assetgraph.Point) (*Segment, error) {
	s, ok := p.(*Segment)
	if !ok || s == nil {
		return nil, fmt.Errorf("css: unexpected attachment point %T", p)
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
	if h == s.Href && s.Source != "" {
		return nil
	}
	s.Href = h
	s.Source = ""
	switch {
	case s.Quote != "" && strings.Contains(h, s.Quote):
		if s.Quote == `"` {
			s.Quote = "'"
		} else {
			s.Quote = `"`
		}
	case s.Quote == "" && s.Kind == URLSegment && strings.ContainsAny(h, " \t\n'\"()"):
		s.Quote = `"`
	}
	return nil
}

// inlineAsDataURL points the segment at the target's data: URL.
func inlineAsDataURL(tree any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
	u, err := target.DataURL()
	if err != nil {
		return nil, err
	}
	return p, setHref(tree, p, u)
}

func detach(tree any, p assetgraph.Point) error {
	st, err := sheet(tree)
	if err != nil {
		return err
	}
	s, err := segment(p)
	if err != nil {
		return err
	}
	i := st.Index(s)
	if i < 0 {
		return fmt.Errorf("css: segment not in stylesheet")
	}
	st.remove(i)
	// Drop the line break that followed an @import rule.
	if s.Kind == ImportSegment && i < len(st.Segments) && st.Segments[i].Kind == RawSegment {
		st.Segments[i].Text = strings.TrimPrefix(st.Segments[i].Text, "\n")
	}
	return nil
}

// Relation types.
var (
	// Import is an @import rule.
	Import = &assetgraph.RelationType{
		Name:         "CssImport",
		TargetKind:   "Css",
		Capabilities: assetgraph.AllCapabilities,
		Href:         href,
		SetHref:      setHref,
		Attach:       attachImport,
		Detach:       detach,
		Inline:       inlineAsDataURL,
	}

	// Image is a url() token in a rule.
	Image = &assetgraph.RelationType{
		Name:         "CssImage",
		Capabilities: assetgraph.Capabilities{CanInline: true},
		Href:         href,
		SetHref:      setHref,
		Inline:       inlineAsDataURL,
	}

	// FontFaceSrc is a url() token inside @font-face.
	FontFaceSrc = &assetgraph.RelationType{
		Name:         "CssFontFaceSrc",
		Capabilities: assetgraph.Capabilities{CanInline: true},
		Href:         href,
		SetHref:      setHref,
		Inline:       inlineAsDataURL,
	}

	// SourceMappingURL is a sourceMappingURL comment.
	SourceMappingURL = &assetgraph.RelationType{
		Name:         "CssSourceMappingUrl",
		TargetKind:   "SourceMap",
		Capabilities: assetgraph.AllCapabilities,
		Href:         href,
		SetHref:      setHref,
		Attach:       attachSourceMap,
		Detach:       detach,
		Inline:       inlineAsDataURL,
	}
)

// attachImport inserts an @import rule. First and Last keep the rule in
// the import block at the top of the sheet, after any @charset.
func attachImport(tree any, pos assetgraph.Position, adjacent assetgraph.Point, h string) (assetgraph.Point, error) {
	st, err := sheet(tree)
	if err != nil {
		return nil, err
	}
	seg := &Segment{Kind: ImportSegment, Href: h, Quote: `"`}
	nl := &Segment{Kind: RawSegment, Text: "\n"}
	var i int
	switch pos {
	case assetgraph.Before, assetgraph.After:
		adj, err := segment(adjacent)
		if err != nil {
			return nil, err
		}
		if i = st.Index(adj); i < 0 {
			return nil, fmt.Errorf("css: adjacent segment not in stylesheet")
		}
		if pos == assetgraph.After {
			st.insert(i+1, seg)
			st.insert(i+1, nl)
			return seg, nil
		}
	case assetgraph.First:
		i = importStart(st)
	default:
		i = importStart(st)
		for j := i; j < len(st.Segments); j++ {
			if st.Segments[j].Kind != ImportSegment {
				continue
			}
			i = j + 1
			if j+1 < len(st.Segments) && st.Segments[j+1].Kind == RawSegment && strings.HasPrefix(st.Segments[j+1].Text, "\n") {
				if rest := st.Segments[j+1].Text[1:]; rest != "" {
					st.Segments[j+1].Text = "\n"
					st.insert(j+2, &Segment{Kind: RawSegment, Text: rest})
				}
				i = j + 2
			}
		}
	}
	st.insert(i, nl)
	st.insert(i, seg)
	return seg, nil
}

// importStart is the index after a leading @charset rule.
func importStart(st *Stylesheet) int {
	if len(st.Segments) == 0 || st.Segments[0].Kind != RawSegment {
		return 0
	}
	first := st.Segments[0]
	loc := charsetRule.FindStringIndex(first.Text)
	if loc == nil {
		return 0
	}
	rest := first.Text[loc[1]:]
	head := first.Text[:loc[1]]
	if strings.HasPrefix(rest, "\n") {
		head += "\n"
		rest = rest[1:]
	}
	first.Text = head
	if rest != "" {
		st.insert(1, &Segment{Kind: RawSegment, Text: rest})
	}
	return 1
}

// attachSourceMap appends a sourceMappingURL comment.
func attachSourceMap(tree any, _ assetgraph.Position, _ assetgraph.Point, h string) (assetgraph.Point, error) {
	st, err := sheet(tree)
	if err != nil {
		return nil, err
	}
	if n := len(st.Segments); n > 0 {
		last := st.Segments[n-1]
		if last.Kind != RawSegment || !strings.HasSuffix(last.Text, "\n") {
			st.Segments = append(st.Segments, &Segment{Kind: RawSegment, Text: "\n"})
		}
	}
	seg := &Segment{Kind: SourceMapSegment, Href: h}
	st.Segments = append(st.Segments, seg)
	return seg, nil
}

// Kinds lists the kinds of this package.
func Kinds() []*assetgraph.Kind { return []*assetgraph.Kind{Kind} }

// Relations lists the relation types of this package.
func Relations() []*assetgraph.RelationType {
	return []*assetgraph.RelationType{Import, Image, FontFaceSrc, SourceMappingURL}
}
