package html

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// attrSpec describes a relation held in one attribute of an element.
type attrSpec struct {
	name      string
	target    string
	tag       string   // element created by Attach, "" when attach is unsupported
	attr      string   // attribute holding the href
	extra     []string // attribute pairs set on created elements
	container string   // "head" or "body"
	noInline  bool
	keepNode  bool // detach removes only the attribute
}

func (s attrSpec) relation() *assetgraph.RelationType {
	t := &assetgraph.RelationType{
		Name:       s.name,
		TargetKind: s.target,
		Capabilities: assetgraph.Capabilities{
			CanAttach: s.tag != "",
			CanDetach: true,
			CanInline: !s.noInline,
		},
		Href: func(_ any, p assetgraph.Point) string {
			a, err := attrPoint(p)
			if err != nil {
				return ""
			}
			return attrVal(a.Node, a.Name)
		},
		SetHref: func(_ any, p assetgraph.Point, h string) error {
			a, err := attrPoint(p)
			if err != nil {
				return err
			}
			setAttr(a.Node, a.Name, h)
			return nil
		},
		Detach: func(_ any, p assetgraph.Point) error {
			a, err := attrPoint(p)
			if err != nil {
				return err
			}
			if s.keepNode {
				removeAttr(a.Node, a.Name)
				return nil
			}
			return detachNode(a.Node)
		},
	}
	if s.tag != "" {
		t.Attach = func(tree any, pos assetgraph.Position, adjacent assetgraph.Point, h string) (assetgraph.Point, error) {
			n := element(s.tag, s.extra...)
			setAttr(n, s.attr, h)
			if err := place(tree, n, pos, adjacent, s.container); err != nil {
				return nil, err
			}
			return &Attr{Node: n, Name: s.attr}, nil
		}
	}
	if !s.noInline {
		t.Inline = func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
			a, err := attrPoint(p)
			if err != nil {
				return nil, err
			}
			u, err := target.DataURL()
			if err != nil {
				return nil, err
			}
			setAttr(a.Node, a.Name, u)
			return a, nil
		}
	}
	return t
}

// Attribute relations.
var (
	Anchor              = attrSpec{name: "HtmlAnchor", tag: "a", attr: "href", container: "body"}.relation()
	Image               = attrSpec{name: "HtmlImage", tag: "img", attr: "src", container: "body"}.relation()
	IFrame              = attrSpec{name: "HtmlIFrame", target: "Html", tag: "iframe", attr: "src", container: "body"}.relation()
	Frame               = attrSpec{name: "HtmlFrame", target: "Html", tag: "frame", attr: "src", container: "body"}.relation()
	Video               = attrSpec{name: "HtmlVideo", tag: "video", attr: "src", container: "body"}.relation()
	Audio               = attrSpec{name: "HtmlAudio", tag: "audio", attr: "src", container: "body"}.relation()
	VideoPoster         = attrSpec{name: "HtmlVideoPoster", attr: "poster", keepNode: true}.relation()
	Embed               = attrSpec{name: "HtmlEmbed", tag: "embed", attr: "src", container: "body"}.relation()
	Object              = attrSpec{name: "HtmlObject", tag: "object", attr: "data", container: "body"}.relation()
	ShortcutIcon        = attrSpec{name: "HtmlShortcutIcon", tag: "link", attr: "href", extra: []string{"rel", "icon"}, container: "head"}.relation()
	AlternateLink       = attrSpec{name: "HtmlAlternateLink", tag: "link", attr: "href", extra: []string{"rel", "alternate"}, container: "head"}.relation()
	ApplicationManifest = attrSpec{name: "HtmlApplicationManifest", target: "ApplicationManifest", tag: "link", attr: "href", extra: []string{"rel", "manifest"}, container: "head", noInline: true}.relation()
	PreconnectLink      = attrSpec{name: "HtmlPreconnectLink", tag: "link", attr: "href", extra: []string{"rel", "preconnect"}, container: "head", noInline: true}.relation()
	DNSPrefetchLink     = attrSpec{name: "HtmlDnsPrefetchLink", tag: "link", attr: "href", extra: []string{"rel", "dns-prefetch"}, container: "head", noInline: true}.relation()
	PrefetchLink        = attrSpec{name: "HtmlPrefetchLink", tag: "link", attr: "href", extra: []string{"rel", "prefetch"}, container: "head"}.relation()
	PreloadLink         = attrSpec{name: "HtmlPreloadLink", tag: "link", attr: "href", extra: []string{"rel", "preload"}, container: "head"}.relation()
)

// CacheManifest is the manifest attribute of the <html> element.
var CacheManifest = &assetgraph.RelationType{
	Name:         "HtmlCacheManifest",
	TargetKind:   "CacheManifest",
	Capabilities: assetgraph.Capabilities{CanAttach: true, CanDetach: true},
	Href:         ApplicationManifest.Href,
	SetHref:      ApplicationManifest.SetHref,
	Attach: func(tree any, _ assetgraph.Position, _ assetgraph.Point, h string) (assetgraph.Point, error) {
		doc, err := document(tree)
		if err != nil {
			return nil, err
		}
		root := find(doc.Root, "html")
		if root == nil {
			return nil, fmt.Errorf("html: document has no <html> element")
		}
		if _, ok := getAttr(root, "manifest"); ok {
			return nil, fmt.Errorf("html: document already has a cache manifest")
		}
		setAttr(root, "manifest", h)
		return &Attr{Node: root, Name: "manifest"}, nil
	},
	Detach: func(_ any, p assetgraph.Point) error {
		a, err := attrPoint(p)
		if err != nil {
			return err
		}
		removeAttr(a.Node, a.Name)
		return nil
	},
}

var refreshURL = regexp.MustCompile(`(?i)(url\s*=\s*)(.*?)\s*$`)

// MetaRefresh is <meta http-equiv="refresh" content="0; url=...">. It can
// only be retargeted.
var MetaRefresh = &assetgraph.RelationType{
	Name: "HtmlMetaRefresh",
	Href: func(_ any, p assetgraph.Point) string {
		n, err := nodeOf(p)
		if err != nil {
			return ""
		}
		if m := refreshURL.FindStringSubmatch(attrVal(n, "content")); m != nil {
			return m[2]
		}
		return ""
	},
	SetHref: func(_ any, p assetgraph.Point, h string) error {
		n, err := nodeOf(p)
		if err != nil {
			return err
		}
		content := attrVal(n, "content")
		loc := refreshURL.FindStringSubmatchIndex(content)
		if loc == nil {
			return fmt.Errorf("html: meta refresh has no url")
		}
		setAttr(n, "content", content[:loc[4]]+h+content[loc[5]:])
		return nil
	},
}

func linkHref(_ any, p assetgraph.Point) string {
	n, err := nodeOf(p)
	if err != nil {
		return ""
	}
	switch n.Data {
	case "link":
		return attrVal(n, "href")
	case "script":
		return attrVal(n, "src")
	}
	return ""
}

func setLinkHref(_ any, p assetgraph.Point, h string) error {
	n, err := nodeOf(p)
	if err != nil {
		return err
	}
	switch n.Data {
	case "link":
		setAttr(n, "href", h)
	case "script":
		setAttr(n, "src", h)
	default:
		return fmt.Errorf("html: inline <%s> has no href", n.Data)
	}
	return nil
}

func detachElement(_ any, p assetgraph.Point) error {
	n, err := nodeOf(p)
	if err != nil {
		return err
	}
	return detachNode(n)
}

// Style is a <link rel="stylesheet"> or a <style> element.
var Style = &assetgraph.RelationType{
	Name:         "HtmlStyle",
	TargetKind:   "Css",
	Capabilities: assetgraph.AllCapabilities,
	Href:         linkHref,
	SetHref:      setLinkHref,
	Attach: func(tree any, pos assetgraph.Position, adjacent assetgraph.Point, h string) (assetgraph.Point, error) {
		n := element("link", "rel", "stylesheet", "href", h)
		if err := place(tree, n, pos, adjacent, "head"); err != nil {
			return nil, err
		}
		return n, nil
	},
	Detach: detachElement,
	Inline: func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
		n, err := nodeOf(p)
		if err != nil {
			return nil, err
		}
		text, err := target.Text()
		if err != nil {
			return nil, err
		}
		if n.Data == "link" {
			style := element("style")
			if media, ok := getAttr(n, "media"); ok {
				setAttr(style, "media", media)
			}
			if n.Parent == nil {
				return nil, fmt.Errorf("html: <link> is not in the document")
			}
			n.Parent.InsertBefore(style, n)
			n.Parent.RemoveChild(n)
			n = style
		}
		setTextContent(n, text)
		return n, nil
	},
	Externalize: func(_ any, p assetgraph.Point, h string) (assetgraph.Point, error) {
		n, err := nodeOf(p)
		if err != nil {
			return nil, err
		}
		if n.Data == "link" {
			setAttr(n, "href", h)
			return n, nil
		}
		if n.Parent == nil {
			return nil, fmt.Errorf("html: <%s> is not in the document", n.Data)
		}
		link := element("link", "rel", "stylesheet", "href", h)
		if media, ok := getAttr(n, "media"); ok {
			setAttr(link, "media", media)
		}
		n.Parent.InsertBefore(link, n)
		n.Parent.RemoveChild(n)
		return link, nil
	},
}

var scriptClose = regexp.MustCompile(`(?i)</(script)`)

// Script is a <script> element, external or inline.
var Script = &assetgraph.RelationType{
	Name:         "HtmlScript",
	TargetKind:   "JavaScript",
	Capabilities: assetgraph.AllCapabilities,
	Href:         linkHref,
	SetHref:      setLinkHref,
	Attach: func(tree any, pos assetgraph.Position, adjacent assetgraph.Point, h string) (assetgraph.Point, error) {
		n := element("script")
		if h != "" {
			setAttr(n, "src", h)
		}
		if err := place(tree, n, pos, adjacent, "body"); err != nil {
			return nil, err
		}
		return n, nil
	},
	Detach: detachElement,
	Inline: func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
		n, err := nodeOf(p)
		if err != nil {
			return nil, err
		}
		text, err := target.Text()
		if err != nil {
			return nil, err
		}
		removeAttr(n, "src")
		setTextContent(n, scriptClose.ReplaceAllString(text, `<\/$1`))
		return n, nil
	},
	Externalize: func(_ any, p assetgraph.Point, h string) (assetgraph.Point, error) {
		n, err := nodeOf(p)
		if err != nil {
			return nil, err
		}
		setTextContent(n, "")
		setAttr(n, "src", h)
		return n, nil
	},
}

// fragmentContainer builds the relation types whose target is an inline
// Html fragment held by a container element.
func fragmentContainer(name, tag, container string, write func(n *html.Node, text string) error) *assetgraph.RelationType {
	return &assetgraph.RelationType{
		Name:         name,
		TargetKind:   "Html",
		Capabilities: assetgraph.AllCapabilities,
		Attach: func(tree any, pos assetgraph.Position, adjacent assetgraph.Point, _ string) (assetgraph.Point, error) {
			n := element(tag)
			if err := place(tree, n, pos, adjacent, container); err != nil {
				return nil, err
			}
			return n, nil
		},
		Detach: detachElement,
		Inline: func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
			n, err := nodeOf(p)
			if err != nil {
				return nil, err
			}
			text, err := target.Text()
			if err != nil {
				return nil, err
			}
			return n, write(n, text)
		},
	}
}

var (
	// Noscript is the body of a <noscript> element. The parser runs with
	// scripting enabled, so the body is a single raw text node.
	Noscript = fragmentContainer("HtmlNoscript", "noscript", "body", func(n *html.Node, text string) error {
		setTextContent(n, text)
		return nil
	})

	// Template is the content of a <template> element.
	Template = fragmentContainer("HtmlTemplate", "template", "body", func(n *html.Node, text string) error {
		nodes, err := html.ParseFragment(strings.NewReader(text), n)
		if err != nil {
			return err
		}
		setTextContent(n, "")
		for _, c := range nodes {
			n.AppendChild(c)
		}
		return nil
	})
)

// ConditionalComment is the body of <!--[if ...]>...<![endif]-->.
var ConditionalComment = &assetgraph.RelationType{
	Name:         "HtmlConditionalComment",
	TargetKind:   "Html",
	Capabilities: assetgraph.Capabilities{CanDetach: true, CanInline: true},
	Detach:       detachElement,
	Inline: func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
		n, err := nodeOf(p)
		if err != nil {
			return nil, err
		}
		text, err := target.Text()
		if err != nil {
			return nil, err
		}
		cond := ""
		if m := conditionalBody.FindStringSubmatch(n.Data); m != nil {
			cond = m[1]
		}
		n.Data = "[if " + cond + "]>" + text + "<![endif]"
		return n, nil
	},
}

// StyleAttribute is the style attribute of an element, exposed as a Css
// rule with a placeholder selector.
var StyleAttribute = &assetgraph.RelationType{
	Name:         "HtmlStyleAttribute",
	TargetKind:   "Css",
	Capabilities: assetgraph.Capabilities{CanDetach: true, CanInline: true},
	Detach: func(_ any, p assetgraph.Point) error {
		a, err := attrPoint(p)
		if err != nil {
			return err
		}
		removeAttr(a.Node, a.Name)
		return nil
	},
	Inline: func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
		a, err := attrPoint(p)
		if err != nil {
			return nil, err
		}
		text, err := target.Text()
		if err != nil {
			return nil, err
		}
		setAttr(a.Node, a.Name, styleBody(text))
		return a, nil
	},
}

// styleAttributeSelector wraps a style attribute so it parses as Css.
const styleAttributeSelector = "bogusselector"

func styleBody(css string) string {
	start := strings.IndexByte(css, '{')
	end := strings.LastIndexByte(css, '}')
	if start < 0 || end < start {
		return strings.TrimSpace(css)
	}
	return strings.TrimSpace(css[start+1 : end])
}

// ImageSrcSet is the srcset attribute of <img> or <source>.
var ImageSrcSet = &assetgraph.RelationType{
	Name:         "HtmlImageSrcSet",
	TargetKind:   "SrcSet",
	Capabilities: assetgraph.Capabilities{CanDetach: true, CanInline: true},
	Detach:       StyleAttribute.Detach,
	Inline: func(_ any, p assetgraph.Point, target *assetgraph.Asset) (assetgraph.Point, error) {
		a, err := attrPoint(p)
		if err != nil {
			return nil, err
		}
		text, err := target.Text()
		if err != nil {
			return nil, err
		}
		setAttr(a.Node, a.Name, text)
		return a, nil
	},
}

// Relations lists the relation types of this package.
func Relations() []*assetgraph.RelationType {
	return []*assetgraph.RelationType{
		Style, Script, Anchor, Image, ImageSrcSet, IFrame, Frame, Video, Audio,
		VideoPoster, Embed, Object, ShortcutIcon, AlternateLink, ApplicationManifest,
		CacheManifest, PreconnectLink, PrefetchLink, PreloadLink, DNSPrefetchLink,
		MetaRefresh, Noscript, Template, ConditionalComment, StyleAttribute,
	}
}
