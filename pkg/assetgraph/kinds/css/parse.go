package css

import (
	"regexp"
	"strings"
)

// SegmentKind identifies what a segment of a stylesheet holds.
type SegmentKind int

const (
	// RawSegment is verbatim text that carries no reference.
	RawSegment SegmentKind = iota
	// URLSegment is a url() token.
	URLSegment
	// ImportSegment is an @import rule up to and including its semicolon.
	ImportSegment
	// SourceMapSegment is a /*# sourceMappingURL=... */ comment.
	SourceMapSegment
)

// Context says where a url() token appears.
type Context int

const (
	// InRule is a url() in an ordinary rule or declaration.
	InRule Context = iota
	// InFontFace is a url() inside an @font-face block.
	InFontFace
)

// Segment is one piece of a stylesheet. Segments concatenate back to the
// original text.
type Segment struct {
	Kind    SegmentKind
	Text    string // verbatim text of a RawSegment
	Href    string
	Quote   string // "", "'" or "\""
	Func    bool   // the @import target is written as url()
	Lead    string // "@import " as written
	Media   string // everything between the @import target and ';'
	Context Context

	// Source is the text a reference segment was parsed from. It is written
	// back as is until the segment is changed.
	Source string
}

// Stylesheet is the tree of a Css asset.
type Stylesheet struct {
	Segments []*Segment
}

// Index returns the position of s, or -1.
func (st *Stylesheet) Index(s *Segment) int {
	for i, seg := range st.Segments {
		if seg == s {
			return i
		}
	}
	return -1
}

func (st *Stylesheet) insert(i int, s *Segment) {
	st.Segments = append(st.Segments, nil)
	copy(st.Segments[i+1:], st.Segments[i:])
	st.Segments[i] = s
}

func (st *Stylesheet) remove(i int) {
	st.Segments = append(st.Segments[:i], st.Segments[i+1:]...)
}

var sourceMapComment = regexp.MustCompile(`^\s*[#@]\s*sourceMappingURL=\s*(\S*)\s*$`)

// Parse splits text into segments. It never fails: unterminated
// constructs are kept as raw text.
func Parse(text string) (*Stylesheet, error) {
	p := &parser{src: text}
	p.run()
	return &Stylesheet{Segments: p.segs}, nil
}

type parser struct {
	src      string
	segs     []*Segment
	rawStart int
	blocks   []bool // true for @font-face blocks
	fontFace bool   // an @font-face prelude is open
}

func (p *parser) emit(start, end int, s *Segment) {
	if start > p.rawStart {
		p.segs = append(p.segs, &Segment{Kind: RawSegment, Text: p.src[p.rawStart:start]})
	}
	s.Source = p.src[start:end]
	p.segs = append(p.segs, s)
	p.rawStart = end
}

func (p *parser) run() {
	src := p.src
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '/' && strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
				continue
			}
			stop := i + 2 + end + 2
			if m := sourceMapComment.FindStringSubmatch(src[i+2 : i+2+end]); m != nil {
				p.emit(i, stop, &Segment{Kind: SourceMapSegment, Href: m[1]})
			}
			i = stop
		case c == '"' || c == '\'':
			_, i, _ = readString(src, i)
		case c == '\\':
			i += 2
		case c == '{':
			p.blocks = append(p.blocks, p.fontFace)
			p.fontFace = false
			i++
		case c == '}':
			if n := len(p.blocks); n > 0 {
				p.blocks = p.blocks[:n-1]
			}
			i++
		case c == ';':
			p.fontFace = false
			i++
		case c == '@':
			kw := readIdent(src, i+1)
			switch strings.ToLower(kw) {
			case "import":
				if end, seg, ok := parseImport(src, i, i+1+len(kw)); ok {
					p.emit(i, end, seg)
					i = end
					continue
				}
			case "font-face":
				p.fontFace = true
			}
			i += 1 + len(kw)
		case (c == 'u' || c == 'U') && hasPrefixFold(src[i:], "url(") && (i == 0 || !isIdentChar(src[i-1])):
			href, quote, end, ok := parseURL(src, i)
			if !ok {
				i += 4
				continue
			}
			ctx := InRule
			if n := len(p.blocks); n > 0 && p.blocks[n-1] {
				ctx = InFontFace
			}
			p.emit(i, end, &Segment{Kind: URLSegment, Href: href, Quote: quote, Context: ctx})
			i = end
		default:
			i++
		}
	}
	if p.rawStart < len(src) {
		p.segs = append(p.segs, &Segment{Kind: RawSegment, Text: src[p.rawStart:]})
	}
}

// parseImport reads an @import rule starting at the '@' at start; i is
// the index after the keyword.
func parseImport(src string, start, i int) (int, *Segment, bool) {
	j := skipSpace(src, i)
	if j == i && j < len(src) && src[j] != '"' && src[j] != '\'' {
		return 0, nil, false
	}
	seg := &Segment{Kind: ImportSegment, Lead: src[start:j]}
	switch {
	case j < len(src) && (src[j] == '"' || src[j] == '\''):
		s, end, ok := readString(src, j)
		if !ok {
			return 0, nil, false
		}
		seg.Href, seg.Quote = s, string(src[j])
		j = end
	case hasPrefixFold(src[j:], "url("):
		href, quote, end, ok := parseURL(src, j)
		if !ok {
			return 0, nil, false
		}
		seg.Href, seg.Quote, seg.Func = href, quote, true
		j = end
	default:
		return 0, nil, false
	}
	k := j
	for k < len(src) && src[k] != ';' && src[k] != '{' {
		if src[k] == '"' || src[k] == '\'' {
			_, k, _ = readString(src, k)
			continue
		}
		k++
	}
	if k >= len(src) || src[k] != ';' {
		return 0, nil, false
	}
	seg.Media = src[j:k]
	return k + 1, seg, true
}

// parseURL reads url(...) at i.
func parseURL(src string, i int) (href, quote string, end int, ok bool) {
	j := skipSpace(src, i+4)
	if j < len(src) && (src[j] == '"' || src[j] == '\'') {
		s, k, ok := readString(src, j)
		if !ok {
			return "", "", 0, false
		}
		k = skipSpace(src, k)
		if k >= len(src) || src[k] != ')' {
			return "", "", 0, false
		}
		return s, string(src[j]), k + 1, true
	}
	k := j
	for k < len(src) && src[k] != ')' {
		if src[k] == '"' || src[k] == '\'' || src[k] == '(' {
			return "", "", 0, false
		}
		if src[k] == '\\' {
			k++
		}
		k++
	}
	if k >= len(src) {
		return "", "", 0, false
	}
	return strings.TrimSpace(src[j:k]), "", k + 1, true
}

// readString reads a quoted string at i and returns its body and the index
// after the closing quote. Unterminated strings end at a newline.
func readString(src string, i int) (string, int, bool) {
	q := src[i]
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '\n':
			return src[i+1 : j], j, false
		case q:
			return src[i+1 : j], j + 1, true
		}
		j++
	}
	return src[i+1:], len(src), false
}

func readIdent(src string, i int) string {
	j := i
	for j < len(src) && isIdentChar(src[j]) {
		j++
	}
	return src[i:j]
}

func isIdentChar(c byte) bool {
	return c == '-' || c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

func skipSpace(src string, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r' || src[i] == '\f') {
		i++
	}
	return i
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Serialize concatenates the segments.
func Serialize(st *Stylesheet) string {
	var b strings.Builder
	for _, s := range st.Segments {
		if s.Kind != RawSegment && s.Source != "" {
			b.WriteString(s.Source)
			continue
		}
		switch s.Kind {
		case RawSegment:
			b.WriteString(s.Text)
		case URLSegment:
			writeURL(&b, s.Href, s.Quote)
		case ImportSegment:
			lead := s.Lead
			if lead == "" {
				lead = "@import "
			}
			b.WriteString(lead)
			if s.Func {
				writeURL(&b, s.Href, s.Quote)
			} else {
				q := s.Quote
				if q == "" {
					q = `"`
				}
				b.WriteString(q + s.Href + q)
			}
			b.WriteString(s.Media)
			b.WriteByte(';')
		case SourceMapSegment:
			b.WriteString("/*# sourceMappingURL=" + s.Href + " */")
		}
	}
	return b.String()
}

func writeURL(b *strings.Builder, href, quote string) {
	if quote == "" && strings.ContainsAny(href, " \t\n'\"()") {
		quote = `"`
	}
	b.WriteString("url(" + quote + href + quote + ")")
}
