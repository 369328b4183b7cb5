package css

import (
	"testing"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"body { color: red }",
		`@import "a.css";` + "\n" + `@import url(b.css) screen and (min-width: 10px);`,
		`@import'c.css';`,
		`div { background: url("x y.png") no-repeat }`,
		`div { background: url('a.png'), url(b.png) }`,
		"@font-face { font-family: X; src: url(x.woff2) format('woff2') }",
		"/* plain comment with url(a.png) */ a { }",
		`a::after { content: "url(not-a-ref.png)" }`,
		"@charset \"utf-8\";\nbody{}",
		"a { background: url(data:image/png;base64,AAAA) }",
		"unterminated { background: url(",
		"a{background:url( 'q.png' )}",
		"@import url( a.css ) print;",
		"body{}\n/*@ sourceMappingURL=a.css.map*/",
	}
	for _, src := range tests {
		st, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", src, err)
		}
		if got := Serialize(st); got != src {
			t.Errorf("Serialize(Parse(%q)) = %q", src, got)
		}
	}
}

func TestFindRelations(t *testing.T) {
	src := `@import "reset.css";
body { background: url(bg.png) }
@font-face { font-family: F; src: url('f.woff') }
a { background-image: url(icon.svg) }
/*# sourceMappingURL=site.css.map */`
	st, _ := Parse(src)
	var problems []error
	descs := findRelations(st, func(err error) { problems = append(problems, err) })
	if len(problems) > 0 {
		t.Fatalf("problems: %v", problems)
	}
	want := []struct{ typ, href string }{
		{"CssImport", "reset.css"},
		{"CssImage", "bg.png"},
		{"CssFontFaceSrc", "f.woff"},
		{"CssImage", "icon.svg"},
		{"CssSourceMappingUrl", "site.css.map"},
	}
	if len(descs) != len(want) {
		t.Fatalf("found %d relations, want %d: %+v", len(descs), len(want), descs)
	}
	for i, w := range want {
		if descs[i].Type != w.typ || descs[i].Href != w.href {
			t.Errorf("relation %d = %s %q, want %s %q", i, descs[i].Type, descs[i].Href, w.typ, w.href)
		}
	}
}

func TestFontFaceContextEndsWithBlock(t *testing.T) {
	st, _ := Parse("@font-face { src: url(a.woff) } .x { background: url(b.png) }")
	var ctx []Context
	for _, s := range st.Segments {
		if s.Kind == URLSegment {
			ctx = append(ctx, s.Context)
		}
	}
	if len(ctx) != 2 || ctx[0] != InFontFace || ctx[1] != InRule {
		t.Errorf("contexts = %v, want [InFontFace InRule]", ctx)
	}
}

func TestSetHrefQuoting(t *testing.T) {
	tests := []struct {
		name, src, href, want string
	}{
		{"unquoted", "a{background:url(a.png)}", "b.png", "a{background:url(b.png)}"},
		{"space forces quotes", "a{background:url(a.png)}", "b c.png", `a{background:url("b c.png")}`},
		{"switch quote", `a{background:url("a.png")}`, `b".png`, `a{background:url('b".png')}`},
		{"import", `@import "a.css";`, "b.css", `@import "b.css";`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _ := Parse(tt.src)
			descs := findRelations(st, func(error) {})
			if len(descs) != 1 {
				t.Fatalf("found %d relations", len(descs))
			}
			if err := setHref(st, descs[0].Point, tt.href); err != nil {
				t.Fatal(err)
			}
			if got := Serialize(st); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetTreeKeepsUntouchedReferences(t *testing.T) {
	reg := assetgraph.NewRegistry().MustRegister(Kinds(), Relations())
	a, err := assetgraph.NewAsset(reg, assetgraph.Config{
		URL:  "http://x/a.css",
		Text: "a{background:url( 'q.png' )} b{background:url( r.png )}",
	})
	if err != nil {
		t.Fatal(err)
	}
	tree, err := a.Tree()
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetTree(tree); err != nil {
		t.Fatal(err)
	}
	rels, err := a.OutgoingRelations()
	if err != nil || len(rels) != 2 {
		t.Fatalf("relations = %d, %v", len(rels), err)
	}
	if err := rels[1].SetHref("s.png"); err != nil {
		t.Fatal(err)
	}
	text, err := a.Text()
	if err != nil {
		t.Fatal(err)
	}
	if want := "a{background:url( 'q.png' )} b{background:url(s.png)}"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestAttachImport(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pos  assetgraph.Position
		want string
	}{
		{"after charset", "@charset \"utf-8\";\nbody{}", assetgraph.First, "@charset \"utf-8\";\n@import \"new.css\";\nbody{}"},
		{"last import", "@import \"a.css\";\nbody{}", assetgraph.Last, "@import \"a.css\";\n@import \"new.css\";\nbody{}"},
		{"first import", "@import \"a.css\";\nbody{}", assetgraph.First, "@import \"new.css\";\n@import \"a.css\";\nbody{}"},
		{"empty", "", assetgraph.Last, "@import \"new.css\";\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _ := Parse(tt.src)
			if _, err := attachImport(st, tt.pos, nil, "new.css"); err != nil {
				t.Fatal(err)
			}
			if got := Serialize(st); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetachImportDropsLineBreak(t *testing.T) {
	st, _ := Parse("@import \"a.css\";\n@import \"b.css\";\nbody{}")
	descs := findRelations(st, func(error) {})
	if err := detach(st, descs[0].Point); err != nil {
		t.Fatal(err)
	}
	if got, want := Serialize(st), "@import \"b.css\";\nbody{}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAttachSourceMap(t *testing.T) {
	st, _ := Parse("body{}")
	if _, err := attachSourceMap(st, assetgraph.Last, nil, "body.css.map"); err != nil {
		t.Fatal(err)
	}
	if got, want := Serialize(st), "body{}\n/*# sourceMappingURL=body.css.map */"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDetectCharset(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{`@charset "iso-8859-1";`, "iso-8859-1"},
		{"\xEF\xBB\xBF@charset 'windows-1252';", "windows-1252"},
		{"body{} @charset \"utf-8\";", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := detectCharset([]byte(tt.src)); got != tt.want {
			t.Errorf("detectCharset(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
