package json

import (
	"testing"
)

func TestParseSerialize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"compact", `{"b":1,"a":[true,null,"x"]}`, `{"a":[true,null,"x"],"b":1}`},
		{"indented", "{\n  \"a\": 1.50\n}\n", "{\n  \"a\": 1.50\n}\n"},
		{"comments", "{\n\t// note\n\t\"a\": \"<b>\", /* x */\n}", "{\n\t\"a\": \"<b>\"\n}\n"},
		{"xssi prefix", ")]}'\n{\"version\":3}", ")]}'\n{\"version\":3}"},
		{"empty", "", "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			got, err := Serialize(doc)
			if err != nil {
				t.Fatalf("Serialize() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	doc, err := Parse(`{"a":`)
	if err == nil {
		t.Fatal("expected an error for truncated json")
	}
	if doc == nil {
		t.Error("Parse should return a partial document on failure")
	}
}

func TestSourceMapRelations(t *testing.T) {
	doc, _ := Parse(`{"version":3,"file":"out.js","sourceRoot":"src/","sources":["a.js","b.js"]}`)
	descs := SourceMap.FindRelations(doc, func(err error) { t.Errorf("problem: %v", err) })
	want := []struct{ typ, href string }{
		{"SourceMapFile", "out.js"},
		{"SourceMapSource", "src/a.js"},
		{"SourceMapSource", "src/b.js"},
	}
	if len(descs) != len(want) {
		t.Fatalf("found %d relations, want %d", len(descs), len(want))
	}
	for i, w := range want {
		if descs[i].Type != w.typ || descs[i].Href != w.href {
			t.Errorf("relation %d = %s %q, want %s %q", i, descs[i].Type, descs[i].Href, w.typ, w.href)
		}
		if i > 0 {
			if got := sourceHref(doc, descs[i].Point); got != w.href {
				t.Errorf("sourceHref = %q, want %q", got, w.href)
			}
		}
	}

	// Keeping the root prefix only rewrites the entry.
	if err := setSourceHref(doc, descs[1].Point, "src/c.js"); err != nil {
		t.Fatal(err)
	}
	got, _ := Serialize(doc)
	if want := `{"file":"out.js","sourceRoot":"src/","sources":["c.js","b.js"],"version":3}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	// Leaving the root folds it into every entry.
	if err := setSourceHref(doc, descs[1].Point, "../lib/c.js"); err != nil {
		t.Fatal(err)
	}
	got, _ = Serialize(doc)
	if want := `{"file":"out.js","sources":["../lib/c.js","src/b.js"],"version":3}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestManifestRelations(t *testing.T) {
	doc, _ := Parse(`{"start_url":"/index.html","icons":[{"src":"icon-192.png","sizes":"192x192"},{"sizes":"1x1"}]}`)
	var problems []error
	descs := ApplicationManifest.FindRelations(doc, func(err error) { problems = append(problems, err) })
	if len(descs) != 2 {
		t.Fatalf("found %d relations, want 2", len(descs))
	}
	if descs[0].Type != "ApplicationManifestStartUrl" || descs[0].Href != "/index.html" {
		t.Errorf("first = %s %q", descs[0].Type, descs[0].Href)
	}
	if descs[1].Type != "ApplicationManifestIcon" || descs[1].Href != "icon-192.png" {
		t.Errorf("second = %s %q", descs[1].Type, descs[1].Href)
	}
	if len(problems) != 1 {
		t.Errorf("problems = %v, want one for the icon without src", problems)
	}

	if err := setFieldHref(doc, descs[1].Point, "img/icon.png"); err != nil {
		t.Fatal(err)
	}
	if got := fieldHref(doc, descs[1].Point); got != "img/icon.png" {
		t.Errorf("fieldHref = %q", got)
	}
}

func TestPlainJsonHasNoRelations(t *testing.T) {
	if Json.FindRelations != nil {
		t.Error("Json should not report relations")
	}
}
