package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// Snapshot is the node-link form of an asset graph.
type Snapshot struct {
	Root  string `json:"root,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one asset.
type Node struct {
	ID     string `json:"id"`
	URL    string `json:"url,omitempty"`
	Type   string `json:"type"`
	Inline bool   `json:"inline,omitempty"`
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

// Edge is one relation between two assets.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
	Href string `json:"href,omitempty"`
}

// FromGraph captures the assets and relations of g, including relations
// whose target was never loaded. Relations without a target are skipped.
func FromGraph(g *assetgraph.Graph) *Snapshot {
	s := &Snapshot{Root: g.Root(), Nodes: []Node{}, Edges: []Edge{}}
	for _, a := range g.FindAssets(assetgraph.AssetQuery{}) {
		n := Node{ID: a.ID(), URL: a.URL(), Type: a.Type(), Inline: a.IsInline(), Loaded: a.IsLoaded()}
		if err := a.LoadError(); err != nil {
			n.Error = err.Error()
		}
		s.Nodes = append(s.Nodes, n)
	}
	for _, r := range g.FindRelations(assetgraph.RelationQuery{}, true) {
		if r.From() == nil || r.To() == nil {
			continue
		}
		e := Edge{From: r.From().ID(), To: r.To().ID(), Type: r.Type()}
		if !r.To().IsInline() {
			e.Href = r.Href()
		}
		s.Edges = append(s.Edges, e)
	}
	return s
}

// WriteJSON encodes g as JSON and writes it to w.
// The output can be read back with [ReadJSON].
func WriteJSON(g *assetgraph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g *assetgraph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
