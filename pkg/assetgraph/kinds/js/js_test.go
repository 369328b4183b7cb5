package js

import (
	"testing"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

func imports(t *testing.T, src string) []string {
	t.Helper()
	s, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	var out []string
	for _, d := range Kind.FindRelations(s, func(err error) { t.Errorf("problem: %v", err) }) {
		out = append(out, d.Type+" "+d.Href)
	}
	return out
}

func TestFindRelations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"side effect", `import "./a.js";`, []string{"JavaScriptStaticImport ./a.js"}},
		{"default", `import a from './a.js'`, []string{"JavaScriptStaticImport ./a.js"}},
		{"named multiline", "import {\n  a,\n  b\n} from \"./ab.js\";", []string{"JavaScriptStaticImport ./ab.js"}},
		{"namespace", `import * as ns from "./ns.js";`, []string{"JavaScriptStaticImport ./ns.js"}},
		{"export star", `export * from "./all.js";`, []string{"JavaScriptStaticImport ./all.js"}},
		{"export named", `export { x } from "./x.js";`, []string{"JavaScriptStaticImport ./x.js"}},
		{"export const", `export const a = "./no.js";`, nil},
		{"dynamic", `import("./lazy.js")`, nil},
		{"in string", `const s = "import './no.js'";`, nil},
		{"in comment", "/* import './no.js' */\n// import './no2.js'", nil},
		{"identifier", `important("./no.js"); obj.import "x"`, nil},
		{"source map", "foo();\n//# sourceMappingURL=foo.js.map", []string{"JavaScriptSourceMappingUrl foo.js.map"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imports(t, tt.src)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("relation %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []string{
		"import a from './a.js';\nexport * from \"./b.js\";\nconst t = `x ${y}`;\nfoo();\n//# sourceMappingURL=x.map\n",
		"foo();\n//@ sourceMappingURL=old.map  ",
	}
	for _, src := range tests {
		s, _ := Parse(src)
		if got := Serialize(s); got != src {
			t.Errorf("Serialize(Parse()) = %q, want %q", got, src)
		}
	}
}

func TestAttachImport(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no imports", "foo();\n", "import \"./new.js\";\nfoo();\n"},
		{"after last import", "import './a.js';\nfoo();\n", "import './a.js';\nimport \"./new.js\";\nfoo();\n"},
		{"import at end", "import './a.js'", "import './a.js';\nimport \"./new.js\";"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := Parse(tt.src)
			if _, err := attachImport(s, assetgraph.Last, nil, "./new.js"); err != nil {
				t.Fatal(err)
			}
			if got := Serialize(s); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetachImport(t *testing.T) {
	s, _ := Parse("import './a.js';\nimport './b.js';\nfoo();\n")
	descs := Kind.FindRelations(s, func(error) {})
	if err := detach(s, descs[0].Point); err != nil {
		t.Fatal(err)
	}
	if got, want := Serialize(s), "import './b.js';\nfoo();\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSetHrefEscapesQuote(t *testing.T) {
	s, _ := Parse(`import "./a.js";`)
	descs := Kind.FindRelations(s, func(error) {})
	if err := setHref(s, descs[0].Point, `./it"s.js`); err != nil {
		t.Fatal(err)
	}
	if got, want := Serialize(s), `import "./it\"s.js";`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
