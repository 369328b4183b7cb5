package urltools

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{"relative", "http://x/dir/index.html", "a.css", "http://x/dir/a.css"},
		{"parent", "http://x/dir/index.html", "../a.css", "http://x/a.css"},
		{"root relative", "http://x/dir/index.html", "/a.css", "http://x/a.css"},
		{"scheme relative", "https://x/dir/", "//cdn.example.com/lib.js", "https://cdn.example.com/lib.js"},
		{"fragment only", "http://x/dir/index.html", "#top", "http://x/dir/index.html#top"},
		{"absolute", "http://x/", "https://y/z.js", "https://y/z.js"},
		{"query", "http://x/a/", "b.css?v=1", "http://x/a/b.css?v=1"},
		{"data", "http://x/", "data:text/css,body{}", "data:text/css,body{}"},
		{"file", "file:///var/www/index.html", "img/a.png", "file:///var/www/img/a.png"},
		{"trimmed", "http://x/", "  a.css ", "http://x/a.css"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.href)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
			}
		})
	}
}

func TestResolveWithoutBase(t *testing.T) {
	if _, err := Resolve("", "a.css"); err == nil {
		t.Error("expected error resolving a relative href without base")
	}
	got, err := Resolve("", "http://x/a.css")
	if err != nil || got != "http://x/a.css" {
		t.Errorf("Resolve() = %q, %v; want absolute passthrough", got, err)
	}
}

func TestCanonicalAndSplitFragment(t *testing.T) {
	if got := Canonical("http://x/a.html#frag"); got != "http://x/a.html" {
		t.Errorf("Canonical() = %q", got)
	}
	if got := Canonical("data:text/plain,a#b"); got != "data:text/plain,a#b" {
		t.Errorf("Canonical(data) = %q", got)
	}
	base, frag := SplitFragment("other.html#fragment1")
	if base != "other.html" || frag != "#fragment1" {
		t.Errorf("SplitFragment() = %q, %q", base, frag)
	}
	base, frag = SplitFragment("other.html")
	if base != "other.html" || frag != "" {
		t.Errorf("SplitFragment() = %q, %q", base, frag)
	}
}

func TestHrefTypeOf(t *testing.T) {
	tests := []struct {
		href string
		want HrefType
	}{
		{"a.css", HrefRelative},
		{"../a.css", HrefRelative},
		{"#frag", HrefRelative},
		{"/a.css", HrefRootRelative},
		{"//cdn/a.css", HrefProtocolRelative},
		{"http://x/a.css", HrefAbsolute},
		{"mailto:a@b.c", HrefAbsolute},
		{"data:,x", HrefInline},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			if got := HrefTypeOf(tt.href); got != tt.want {
				t.Errorf("HrefTypeOf(%q) = %v, want %v", tt.href, got, tt.want)
			}
		})
	}
}

func TestBuildHref(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		target string
		typ    HrefType
		want   string
	}{
		{"same dir", "http://x/a/index.html", "http://x/a/s.css", HrefRelative, "s.css"},
		{"sibling dir", "http://x/a/b/index.html", "http://x/a/c/s.css", HrefRelative, "../c/s.css"},
		{"deeper", "http://x/index.html", "http://x/css/s.css", HrefRelative, "css/s.css"},
		{"directory", "http://x/a/index.html", "http://x/a/", HrefRelative, "./"},
		{"cross origin relative", "http://x/index.html", "http://y/s.css", HrefRelative, "http://y/s.css"},
		{"root relative", "http://x/a/index.html", "http://x/css/s.css?v=2", HrefRootRelative, "/css/s.css?v=2"},
		{"protocol relative", "https://x/", "https://cdn/s.css", HrefProtocolRelative, "//cdn/s.css"},
		{"absolute", "http://x/", "http://x/s.css", HrefAbsolute, "http://x/s.css"},
		{"query kept", "http://x/", "http://x/s.css?a=b", HrefRelative, "s.css?a=b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildHref(tt.base, tt.target, tt.typ); got != tt.want {
				t.Errorf("BuildHref() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildHrefRoundTrip(t *testing.T) {
	base := "http://x/a/b/page.html"
	targets := []string{
		"http://x/a/b/c.css",
		"http://x/a/d/e.js",
		"http://x/f.png",
		"http://x/a/b/g/h/i.svg",
	}
	for _, target := range targets {
		href := BuildHref(base, target, HrefRelative)
		got, err := Resolve(base, href)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", href, err)
		}
		if got != target {
			t.Errorf("round trip via %q = %q, want %q", href, got, target)
		}
	}
}

func TestExtensionAndFileName(t *testing.T) {
	if got := Extension("http://x/a/Style.CSS?v=1"); got != ".css" {
		t.Errorf("Extension() = %q", got)
	}
	if got := Extension("http://x/a/noext"); got != "" {
		t.Errorf("Extension() = %q, want empty", got)
	}
	if got := FileName("http://x/a/b.html"); got != "b.html" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestFileURLs(t *testing.T) {
	dir := t.TempDir()
	u, err := FromPath(dir + "/index.html")
	if err != nil {
		t.Fatalf("FromPath() error: %v", err)
	}
	if !strings.HasPrefix(u, "file:///") {
		t.Errorf("FromPath() = %q, want file:/// prefix", u)
	}
	p, err := ToPath(u)
	if err != nil {
		t.Fatalf("ToPath() error: %v", err)
	}
	if !strings.HasSuffix(p, "index.html") {
		t.Errorf("ToPath() = %q", p)
	}
	if _, err := ToPath("http://x/"); err == nil {
		t.Error("ToPath() accepted a non-file url")
	}
}

func TestSchemeAndOrigin(t *testing.T) {
	if got := Scheme("HTTPS://x/"); got != "https" {
		t.Errorf("Scheme() = %q", got)
	}
	if got := Scheme("a.css"); got != "" {
		t.Errorf("Scheme(relative) = %q", got)
	}
	if got := Origin("http://x:8080/a/b"); got != "http://x:8080" {
		t.Errorf("Origin() = %q", got)
	}
}
