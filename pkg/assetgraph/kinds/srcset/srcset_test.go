package srcset

import (
	"testing"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Entry
	}{
		{"single", "a.png", []Entry{{"a.png", ""}}},
		{"density", "a.png 1x, b.png 2x", []Entry{{"a.png", "1x"}, {"b.png", "2x"}}},
		{"width no space", "a.png 100w,b.png 200w", []Entry{{"a.png", "100w"}, {"b.png", "200w"}}},
		{"trailing comma on url", "a.png, b.png 2x", []Entry{{"a.png", ""}, {"b.png", "2x"}}},
		{"data url", "data:image/png;base64,AAAA 1x, b.png 2x", []Entry{{"data:image/png;base64,AAAA", "1x"}, {"b.png", "2x"}}},
		{"whitespace", "\n  a.png   1x ,\n  b.png 2x\n", []Entry{{"a.png", "1x"}, {"b.png", "2x"}}},
		{"empty", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Parse(tt.src)
			if len(s.Entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(s.Entries), len(tt.want))
			}
			for i, w := range tt.want {
				if *s.Entries[i] != w {
					t.Errorf("entry %d = %+v, want %+v", i, *s.Entries[i], w)
				}
			}
		})
	}
}

func TestString(t *testing.T) {
	s := Parse("a.png   1x,b.png 2x")
	if got, want := s.String(), "a.png 1x, b.png 2x"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAttachDetach(t *testing.T) {
	s := Parse("a.png 1x, c.png 3x")
	p, err := EntryRelation.Attach(s, assetgraph.After, s.Entries[0], "b.png")
	if err != nil {
		t.Fatal(err)
	}
	p.(*Entry).Descriptor = "2x"
	if got, want := s.String(), "a.png 1x, b.png 2x, c.png 3x"; got != want {
		t.Errorf("after attach = %q, want %q", got, want)
	}
	if _, err := EntryRelation.Attach(s, assetgraph.First, nil, "z.png"); err != nil {
		t.Fatal(err)
	}
	if err := EntryRelation.Detach(s, s.Entries[1]); err != nil {
		t.Fatal(err)
	}
	if got, want := s.String(), "z.png, b.png 2x, c.png 3x"; got != want {
		t.Errorf("after detach = %q, want %q", got, want)
	}
	if err := EntryRelation.Detach(s, &Entry{URL: "nope"}); err == nil {
		t.Error("detaching a foreign entry should fail")
	}
}
