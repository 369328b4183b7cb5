package html

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
)

var (
	metaRefreshContent = regexp.MustCompile(`(?i)^\s*\d*\.?\d*\s*;\s*url\s*=\s*(.*?)\s*$`)
	relStylesheet      = relWord("stylesheet")
	relIcon            = relWord(`(?:apple-touch-icon(?:-precomposed)?|icon)`)
	relAlternate       = relWord("alternate")
	relManifest        = relWord("manifest")
	relDNSPrefetch     = relWord("dns-prefetch")
	relPreconnect      = relWord("preconnect")
	relPrefetch        = relWord("prefetch")
	relPreload         = relWord("preload")
)

// relWord matches word as one token of a rel attribute.
func relWord(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\s)` + word + `(?:$|\s)`)
}

// finder walks a document and collects relation descriptors in document
// order.
type finder struct {
	out         []assetgraph.Descriptor
	report      func(error)
	conditional []*html.Node
	manifest    bool
}

func (f *finder) add(typ *assetgraph.RelationType, href string, p assetgraph.Point) {
	f.out = append(f.out, assetgraph.Descriptor{Type: typ.Name, Href: href, Point: p})
}

func (f *finder) addInline(typ *assetgraph.RelationType, cfg assetgraph.Config, p assetgraph.Point) {
	f.out = append(f.out, assetgraph.Descriptor{Type: typ.Name, Inline: &cfg, Point: p})
}

func (f *finder) addAttr(typ *assetgraph.RelationType, n *html.Node, name string) {
	if v, ok := getAttr(n, name); ok {
		f.add(typ, v, &Attr{Node: n, Name: name})
	}
}

func findRelations(tree any, report func(error)) []assetgraph.Descriptor {
	doc, err := document(tree)
	if err != nil {
		report(err)
		return nil
	}
	f := &finder{report: report}
	stack := []*html.Node{doc.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		descend := true
		switch n.Type {
		case html.ElementNode:
			descend = f.element(n)
		case html.CommentNode:
			f.comment(n)
		}
		if descend {
			for c := n.LastChild; c != nil; c = c.PrevSibling {
				stack = append(stack, c)
			}
		}
	}
	if len(f.conditional) > 0 {
		var open []string
		for _, c := range f.conditional {
			open = append(open, c.Data)
		}
		report(agerrors.New(agerrors.ErrCodeSyntax, "no end marker found for conditional comment(s): %s", strings.Join(open, ", ")))
	}
	return f.out
}

// element records the relations of n and reports whether its children
// should be visited.
func (f *finder) element(n *html.Node) bool {
	descend := true
	switch n.Data {
	case "html":
		f.addAttr(CacheManifest, n, "manifest")
	case "script":
		if isJavaScriptType(attrVal(n, "type")) {
			if src, ok := getAttr(n, "src"); ok && src != "" {
				f.add(Script, src, n)
			} else {
				f.addInline(Script, assetgraph.Config{Kind: "JavaScript", Text: textContent(n)}, n)
			}
		}
	case "template":
		descend = false
		f.addInline(Template, assetgraph.Config{Kind: "Html", Text: innerHTML(n)}, n)
	case "noscript":
		descend = false
		f.addInline(Noscript, assetgraph.Config{Kind: "Html", Text: noscriptText(n)}, n)
	case "style":
		f.addInline(Style, assetgraph.Config{Kind: "Css", Text: textContent(n)}, n)
	case "link":
		f.link(n)
	case "meta":
		if strings.EqualFold(attrVal(n, "http-equiv"), "refresh") {
			if m := metaRefreshContent.FindStringSubmatch(attrVal(n, "content")); m != nil {
				f.add(MetaRefresh, m[1], n)
			}
		}
	case "img":
		if v := attrVal(n, "src"); v != "" {
			f.add(Image, v, &Attr{Node: n, Name: "src"})
		}
		f.srcset(n)
	case "a":
		f.addAttr(Anchor, n, "href")
	case "iframe":
		f.addAttr(IFrame, n, "src")
	case "frame":
		f.addAttr(Frame, n, "src")
	case "video":
		f.addAttr(Video, n, "src")
		f.addAttr(VideoPoster, n, "poster")
	case "audio":
		f.addAttr(Audio, n, "src")
	case "source", "track":
		parent := ""
		if n.Parent != nil {
			parent = n.Parent.Data
		}
		switch parent {
		case "video":
			f.addAttr(Video, n, "src")
		case "audio":
			f.addAttr(Audio, n, "src")
		case "picture":
			if v := attrVal(n, "src"); v != "" {
				f.add(Image, v, &Attr{Node: n, Name: "src"})
			}
			f.srcset(n)
		}
	case "object":
		f.addAttr(Object, n, "data")
	case "embed":
		f.addAttr(Embed, n, "src")
	}
	if style, ok := getAttr(n, "style"); ok {
		f.addInline(StyleAttribute, assetgraph.Config{
			Kind:              "Css",
			Text:              styleAttributeSelector + " {" + style + "}",
			NotExternalizable: true,
		}, &Attr{Node: n, Name: "style"})
	}
	return descend
}

func (f *finder) srcset(n *html.Node) {
	if v := attrVal(n, "srcset"); v != "" {
		f.addInline(ImageSrcSet, assetgraph.Config{Kind: "SrcSet", Text: v, NotExternalizable: true}, &Attr{Node: n, Name: "srcset"})
	}
}

func (f *finder) link(n *html.Node) {
	rel, okRel := getAttr(n, "rel")
	href, okHref := getAttr(n, "href")
	if !okRel || !okHref {
		return
	}
	p := &Attr{Node: n, Name: "href"}
	switch {
	case relStylesheet.MatchString(rel):
		f.add(Style, href, n)
	case relIcon.MatchString(rel):
		f.add(ShortcutIcon, href, p)
	case relAlternate.MatchString(rel):
		f.add(AlternateLink, href, p)
	case relManifest.MatchString(rel):
		if f.manifest {
			f.report(agerrors.New(agerrors.ErrCodeSyntax, "multiple application manifest links, only one per document is allowed"))
			return
		}
		f.manifest = true
		f.add(ApplicationManifest, href, p)
	case relDNSPrefetch.MatchString(rel):
		f.add(DNSPrefetchLink, href, p)
	case relPreconnect.MatchString(rel):
		f.add(PreconnectLink, href, p)
	case relPrefetch.MatchString(rel):
		f.add(PrefetchLink, href, p)
	case relPreload.MatchString(rel):
		f.add(PreloadLink, href, p)
	}
}

// comment handles conditional comments. Downlevel-revealed markers
// (<!--[if !IE]><!--> ... <!--<![endif]-->) only need to balance; hidden
// ones carry an Html fragment.
func (f *finder) comment(n *html.Node) {
	switch {
	case conditionalOpen.MatchString(n.Data):
		f.conditional = append(f.conditional, n)
	case conditionalEnd.MatchString(n.Data):
		if len(f.conditional) == 0 {
			f.report(agerrors.New(agerrors.ErrCodeSyntax, "conditional comment end marker without a start marker: %s", n.Data))
			return
		}
		f.conditional = f.conditional[:len(f.conditional)-1]
	default:
		if m := conditionalBody.FindStringSubmatch(n.Data); m != nil {
			f.addInline(ConditionalComment, assetgraph.Config{Kind: "Html", Text: m[2]}, n)
		}
	}
}

// noscriptText returns the raw body of a noscript element, which the
// parser keeps as text when scripting is enabled and as nodes otherwise.
func noscriptText(n *html.Node) string {
	if n.FirstChild != nil && n.FirstChild == n.LastChild && n.FirstChild.Type == html.TextNode {
		return n.FirstChild.Data
	}
	return innerHTML(n)
}

func isJavaScriptType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}
