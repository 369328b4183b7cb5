package urltools

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// HrefType describes how an href addresses its target.
type HrefType string

// Href types, in the order a relation would prefer to keep them.
const (
	HrefRelative         HrefType = "relative"
	HrefRootRelative     HrefType = "rootRelative"
	HrefProtocolRelative HrefType = "protocolRelative"
	HrefAbsolute         HrefType = "absolute"
	HrefInline           HrefType = "inline"
)

// Resolve resolves href against base and returns an absolute URL.
// The fragment of href is preserved; use [Canonical] to drop it.
// data: hrefs and hrefs that already carry a scheme are returned as-is.
func Resolve(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if IsData(href) {
		return href, nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("cannot resolve %q without a base url", href)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}

// Canonical returns u without its fragment identifier.
// data: URLs are returned unchanged since '#' is payload there.
func Canonical(u string) string {
	if IsData(u) {
		return u
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// SplitFragment separates href into the part before '#' and the fragment
// including the leading '#'. The fragment is empty when absent.
func SplitFragment(href string) (string, string) {
	if IsData(href) {
		return href, ""
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i], href[i:]
	}
	return href, ""
}

// HrefTypeOf classifies an href by its syntactic form.
func HrefTypeOf(href string) HrefType {
	switch {
	case IsData(href):
		return HrefInline
	case strings.HasPrefix(href, "//"):
		return HrefProtocolRelative
	case strings.HasPrefix(href, "/"):
		return HrefRootRelative
	case hasScheme(href):
		return HrefAbsolute
	default:
		return HrefRelative
	}
}

// BuildHref produces an href addressing target from a document located at
// base, using the requested style. Styles that cannot express the target
// (a relative href across origins) fall back to an absolute URL.
func BuildHref(base, target string, t HrefType) string {
	tu, err := url.Parse(target)
	if err != nil || t == HrefAbsolute || t == HrefInline || IsData(target) {
		return target
	}
	bu, err := url.Parse(base)
	if err != nil || base == "" {
		return target
	}

	switch t {
	case HrefProtocolRelative:
		if tu.Host == "" {
			return target
		}
		return strings.TrimPrefix(target, tu.Scheme+":")
	case HrefRootRelative:
		if !sameOrigin(bu, tu) {
			return target
		}
		return pathQueryFragment(tu)
	default:
		if !sameOrigin(bu, tu) {
			return target
		}
		rel := relativePath(bu.EscapedPath(), tu.EscapedPath())
		if tu.RawQuery != "" {
			rel += "?" + tu.RawQuery
		}
		if tu.Fragment != "" {
			rel += "#" + tu.EscapedFragment()
		}
		return rel
	}
}

// Origin returns scheme://host of u, or "" for URLs without a host.
func Origin(u string) string {
	p, err := url.Parse(u)
	if err != nil || p.Host == "" {
		return ""
	}
	return p.Scheme + "://" + p.Host
}

// Scheme returns the lower-cased scheme of u without the colon.
func Scheme(u string) string {
	if i := strings.IndexByte(u, ':'); i > 0 && hasScheme(u) {
		return strings.ToLower(u[:i])
	}
	return ""
}

// IsData reports whether u is a data: URL.
func IsData(u string) bool {
	return len(u) >= 5 && strings.EqualFold(u[:5], "data:")
}

// Extension returns the lower-cased file extension of the path of u,
// including the dot, or "" if the last segment has none.
func Extension(u string) string {
	if IsData(u) {
		return ""
	}
	p, err := url.Parse(u)
	if err != nil {
		return ""
	}
	seg := p.Path[strings.LastIndexByte(p.Path, '/')+1:]
	if i := strings.LastIndexByte(seg, '.'); i > 0 {
		return strings.ToLower(seg[i:])
	}
	return ""
}

// FileName returns the last path segment of u.
func FileName(u string) string {
	p, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return p.Path[strings.LastIndexByte(p.Path, '/')+1:]
}

// FromPath converts a filesystem path to a file: URL. Relative paths are
// made absolute against the working directory. A trailing separator is kept
// so directories can serve as base URLs.
func FromPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if strings.HasSuffix(path, string(filepath.Separator)) || strings.HasSuffix(path, "/") {
		p += "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String(), nil
}

// ToPath converts a file: URL to a filesystem path.
func ToPath(u string) (string, error) {
	p, err := url.Parse(u)
	if err != nil {
		return "", err
	}
	if p.Scheme != "file" {
		return "", fmt.Errorf("not a file url: %s", u)
	}
	return filepath.FromSlash(p.Path), nil
}

func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			return i > 0
		default:
			return false
		}
	}
	return false
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func pathQueryFragment(u *url.URL) string {
	s := u.EscapedPath()
	if s == "" {
		s = "/"
	}
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		s += "#" + u.EscapedFragment()
	}
	return s
}

// relativePath computes the relative reference from the document at
// fromPath to toPath. Both are absolute, slash-separated paths.
func relativePath(fromPath, toPath string) string {
	fromDir := strings.Split(fromPath[:strings.LastIndexByte(fromPath, '/')+1], "/")
	toSegs := strings.Split(toPath, "/")

	// fromDir ends with an empty element after the trailing slash.
	fromDir = fromDir[:len(fromDir)-1]
	toDir := toSegs[:len(toSegs)-1]

	common := 0
	for common < len(fromDir) && common < len(toDir) && fromDir[common] == toDir[common] {
		common++
	}

	var b strings.Builder
	for range len(fromDir) - common {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(toSegs[common:], "/"))
	if b.Len() == 0 {
		return "./"
	}
	return b.String()
}
