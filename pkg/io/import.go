package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadJSON decodes a snapshot written by [WriteJSON].
//
// ReadJSON returns an error if:
//   - The JSON is malformed or invalid
//   - A node has an empty or duplicate ID
//   - An edge references an unknown node ID
//
// Cycles are allowed; asset graphs routinely contain them. ReadJSON does
// not close r.
func ReadJSON(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	ids := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %q: missing id", n.URL)
		}
		if ids[n.ID] {
			return nil, fmt.Errorf("node %s: duplicate id", n.ID)
		}
		ids[n.ID] = true
	}
	for _, e := range s.Edges {
		if !ids[e.From] || !ids[e.To] {
			return nil, fmt.Errorf("edge %s->%s: unknown node", e.From, e.To)
		}
	}
	return &s, nil
}

// ImportJSON reads a JSON file at path and returns the decoded snapshot.
func ImportJSON(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
