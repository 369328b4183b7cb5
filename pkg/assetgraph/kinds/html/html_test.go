package html

import (
	"strings"
	"testing"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

const page = `<!DOCTYPE html>
<html manifest="app.appcache">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5; url=next.html">
<link rel="stylesheet" href="a.css" media="print">
<link rel="shortcut icon" href="favicon.ico">
<link rel="manifest" href="app.webmanifest">
<link rel="preconnect" href="https://cdn.example.com">
<style>body { background: url(bg.png) }</style>
<script src="a.js"></script>
</head>
<body>
<a href="b.html#top">b</a>
<img src="i.png" srcset="i2.png 2x">
<div style="color: red"></div>
<noscript><img src="ns.png"></noscript>
<template><p>t</p></template>
<!--[if IE]><link rel="stylesheet" href="ie.css"><![endif]-->
<video src="v.mp4" poster="p.jpg"></video>
<script type="text/x-template"><p></p></script>
<script>var x = 1;</script>
</body>
</html>`

func describe(descs []assetgraph.Descriptor) []string {
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		if d.Inline != nil {
			out = append(out, d.Type+" inline "+d.Inline.Kind)
			continue
		}
		out = append(out, d.Type+" "+d.Href)
	}
	return out
}

func TestFindRelations(t *testing.T) {
	doc, err := Parse(page)
	if err != nil {
		t.Fatal(err)
	}
	var problems []error
	got := describe(findRelations(doc, func(err error) { problems = append(problems, err) }))
	want := []string{
		"HtmlCacheManifest app.appcache",
		"HtmlMetaRefresh next.html",
		"HtmlStyle a.css",
		"HtmlShortcutIcon favicon.ico",
		"HtmlApplicationManifest app.webmanifest",
		"HtmlPreconnectLink https://cdn.example.com",
		"HtmlStyle inline Css",
		"HtmlScript a.js",
		"HtmlAnchor b.html#top",
		"HtmlImage i.png",
		"HtmlImageSrcSet inline SrcSet",
		"HtmlStyleAttribute inline Css",
		"HtmlNoscript inline Html",
		"HtmlTemplate inline Html",
		"HtmlConditionalComment inline Html",
		"HtmlVideo v.mp4",
		"HtmlVideoPoster p.jpg",
		"HtmlScript inline JavaScript",
	}
	if len(problems) > 0 {
		t.Errorf("problems: %v", problems)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d relations:\n%s\nwant %d", len(got), strings.Join(got, "\n"), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("relation %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInlineContent(t *testing.T) {
	doc, _ := Parse(page)
	texts := map[string]string{}
	for _, d := range findRelations(doc, func(error) {}) {
		if d.Inline != nil {
			texts[d.Type] = d.Inline.Text
		}
	}
	tests := map[string]string{
		"HtmlStyleAttribute":     "bogusselector {color: red}",
		"HtmlNoscript":           `<img src="ns.png">`,
		"HtmlTemplate":           "<p>t</p>",
		"HtmlConditionalComment": `<link rel="stylesheet" href="ie.css">`,
		"HtmlImageSrcSet":        "i2.png 2x",
		"HtmlScript":             "var x = 1;",
	}
	for typ, want := range tests {
		if got := texts[typ]; got != want {
			t.Errorf("%s text = %q, want %q", typ, got, want)
		}
	}
}

func TestConditionalCommentMarkers(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		problems int
	}{
		{"balanced revealed", "<!--[if !IE]><!--><p>x</p><!--<![endif]-->", 0},
		{"unclosed", "<!--[if !IE]><!--><p>x</p>", 1},
		{"stray end", "<p>x</p><!--<![endif]-->", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _ := Parse(tt.src)
			var problems []error
			findRelations(doc, func(err error) { problems = append(problems, err) })
			if len(problems) != tt.problems {
				t.Errorf("problems = %v, want %d", problems, tt.problems)
			}
		})
	}
}

func TestDuplicateManifestLink(t *testing.T) {
	doc, _ := Parse(`<!DOCTYPE html><head><link rel="manifest" href="a.json"><link rel="manifest" href="b.json"></head>`)
	var problems []error
	descs := findRelations(doc, func(err error) { problems = append(problems, err) })
	if len(descs) != 1 || len(problems) != 1 {
		t.Errorf("relations = %v, problems = %v", describe(descs), problems)
	}
}

func TestDetectCharset(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{`<meta charset="iso-8859-1">`, "iso-8859-1"},
		{`<meta http-equiv="Content-Type" content="text/html; charset=windows-1252">`, "windows-1252"},
		{`<meta charset="utf-8"><meta charset="shift_jis">`, "shift_jis"},
		{`<meta name="viewport" content="width=device-width">`, ""},
	}
	for _, tt := range tests {
		if got := detectCharset([]byte(tt.src)); got != tt.want {
			t.Errorf("detectCharset(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestFragmentRoundTrip(t *testing.T) {
	src := `<p class="x">hi <b>there</b></p><img src="a.png"/>`
	doc, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Fragment {
		t.Fatal("expected a fragment")
	}
	got, err := Serialize(doc)
	if err != nil {
		t.Fatal(err)
	}
	if got != src {
		t.Errorf("Serialize = %q, want %q", got, src)
	}
}

func inlineAsset(t *testing.T, kind, text string) *assetgraph.Asset {
	t.Helper()
	reg := assetgraph.NewRegistry().MustRegister([]*assetgraph.Kind{
		{Name: "Css", ContentType: "text/css"},
		{Name: "JavaScript", ContentType: "application/javascript"},
	}, nil)
	a, err := assetgraph.NewAsset(reg, assetgraph.Config{Kind: kind, Text: text, Inline: true})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestStyleInlineReplacesLink(t *testing.T) {
	doc, _ := Parse(`<!DOCTYPE html><html><head><link rel="stylesheet" href="a.css" media="print"></head><body></body></html>`)
	descs := findRelations(doc, func(error) {})
	p, err := Style.Inline(doc, descs[0].Point, inlineAsset(t, "Css", "body{color:red}"))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := Serialize(doc)
	if want := `<style media="print">body{color:red}</style>`; !strings.Contains(got, want) || strings.Contains(got, "<link") {
		t.Errorf("got %s, want it to contain %s", got, want)
	}
	if Style.Href(doc, p) != "" {
		t.Error("inline style should have no href")
	}
}

func TestScriptInlineEscapesClosingTag(t *testing.T) {
	doc, _ := Parse(`<!DOCTYPE html><html><body><script src="a.js"></script></body></html>`)
	descs := findRelations(doc, func(error) {})
	if _, err := Script.Inline(doc, descs[0].Point, inlineAsset(t, "JavaScript", `document.write("</script>")`)); err != nil {
		t.Fatal(err)
	}
	got, _ := Serialize(doc)
	if want := `<script>document.write("<\/script>")</script>`; !strings.Contains(got, want) {
		t.Errorf("got %s, want it to contain %s", got, want)
	}
}

func TestAttachPlacement(t *testing.T) {
	doc, _ := Parse(`<!DOCTYPE html><html><head><title>x</title></head><body><p>x</p></body></html>`)
	if _, err := Style.Attach(doc, assetgraph.Last, nil, "a.css"); err != nil {
		t.Fatal(err)
	}
	if _, err := Script.Attach(doc, assetgraph.Last, nil, "a.js"); err != nil {
		t.Fatal(err)
	}
	p, err := ShortcutIcon.Attach(doc, assetgraph.First, nil, "favicon.ico")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Anchor.Attach(doc, assetgraph.Before, p, "x.html"); err != nil {
		t.Fatal(err)
	}
	got, _ := Serialize(doc)
	want := `<!DOCTYPE html><html><head><a href="x.html"></a><link rel="icon" href="favicon.ico"/><title>x</title><link rel="stylesheet" href="a.css"/></head><body><p>x</p><script src="a.js"></script></body></html>`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	frag, _ := Parse(`<p>x</p>`)
	if _, err := Script.Attach(frag, assetgraph.First, nil, "b.js"); err != nil {
		t.Fatal(err)
	}
	if got, _ := Serialize(frag); got != `<script src="b.js"></script><p>x</p>` {
		t.Errorf("fragment = %s", got)
	}
}

func TestMetaRefreshSetHref(t *testing.T) {
	doc, _ := Parse(`<!DOCTYPE html><meta http-equiv="refresh" content="0; URL=old.html">`)
	descs := findRelations(doc, func(error) {})
	if len(descs) != 1 {
		t.Fatalf("relations = %v", describe(descs))
	}
	if err := MetaRefresh.SetHref(doc, descs[0].Point, "new.html"); err != nil {
		t.Fatal(err)
	}
	if got := MetaRefresh.Href(doc, descs[0].Point); got != "new.html" {
		t.Errorf("Href = %q", got)
	}
	got, _ := Serialize(doc)
	if !strings.Contains(got, `content="0; URL=new.html"`) {
		t.Errorf("got %s", got)
	}
}

func TestStyleBody(t *testing.T) {
	tests := []struct{ in, want string }{
		{"bogusselector {color: red}", "color: red"},
		{"bogusselector {\n  color: red;\n}", "color: red;"},
		{"color: blue", "color: blue"},
	}
	for _, tt := range tests {
		if got := styleBody(tt.in); got != tt.want {
			t.Errorf("styleBody(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVideoPosterDetachKeepsElement(t *testing.T) {
	doc, _ := Parse(`<video src="v.mp4" poster="p.jpg"></video>`)
	descs := findRelations(doc, func(error) {})
	if err := VideoPoster.Detach(doc, descs[1].Point); err != nil {
		t.Fatal(err)
	}
	if got, _ := Serialize(doc); got != `<video src="v.mp4"></video>` {
		t.Errorf("got %s", got)
	}
}
