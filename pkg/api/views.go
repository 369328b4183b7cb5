package api

import (
	"errors"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// AssetView is the JSON form of an asset.
type AssetView struct {
	ID          string `json:"id"`
	URL         string `json:"url,omitempty"`
	Type        string `json:"type"`
	ContentType string `json:"contentType"`
	Inline      bool   `json:"inline"`
	Loaded      bool   `json:"loaded"`
	Populated   bool   `json:"populated"`
	Dirty       bool   `json:"dirty"`
	Encoding    string `json:"encoding,omitempty"`
	LoadError   string `json:"loadError,omitempty"`
	Ancestor    string `json:"ancestor,omitempty"` // ID of the nearest non-inline asset
}

// AssetDetail adds the relations of an asset.
type AssetDetail struct {
	AssetView
	Outgoing []RelationView `json:"outgoing"`
	Incoming []RelationView `json:"incoming"`
}

// RelationView is the JSON form of a relation.
type RelationView struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	ToURL    string `json:"toUrl,omitempty"`
	Href     string `json:"href,omitempty"`
	HrefType string `json:"hrefType,omitempty"`
	State    string `json:"state"`
	Resolved bool   `json:"resolved"`
	Excluded bool   `json:"excluded,omitempty"`
}

// DiagnosticView is the JSON form of a warning or info record.
type DiagnosticView struct {
	Level   string `json:"level"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Asset   string `json:"asset,omitempty"`
	Line    int    `json:"line,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AssetViewOf returns the JSON form of a.
func AssetViewOf(a *assetgraph.Asset) AssetView {
	v := AssetView{
		ID:          a.ID(),
		URL:         a.URL(),
		Type:        a.Type(),
		ContentType: a.ContentType(),
		Inline:      a.IsInline(),
		Loaded:      a.IsLoaded(),
		Populated:   a.IsPopulated(),
		Dirty:       a.IsDirty(),
	}
	if v.Loaded && !a.Kind().Binary {
		v.Encoding = a.Encoding()
	}
	if err := a.LoadError(); err != nil {
		v.LoadError = err.Error()
	}
	if a.IsInline() {
		if anc := a.NonInlineAncestor(); anc != nil {
			v.Ancestor = anc.ID()
		}
	}
	return v
}

// RelationViewOf returns the JSON form of r. Relations without a target
// carry neither To nor ToURL.
func RelationViewOf(r *assetgraph.Relation) RelationView {
	v := RelationView{
		Type:     r.Type(),
		Href:     r.Href(),
		HrefType: string(r.HrefType()),
		State:    r.State().String(),
		Resolved: r.IsResolved(),
		Excluded: r.Excluded(),
	}
	if r.From() != nil {
		v.From = r.From().ID()
	}
	if r.To() != nil {
		v.To = r.To().ID()
		v.ToURL = r.To().URL()
	}
	return v
}

func relationViews(rels []*assetgraph.Relation) []RelationView {
	out := make([]RelationView, 0, len(rels))
	for _, r := range rels {
		out = append(out, RelationViewOf(r))
	}
	return out
}

// DiagnosticViewOf returns the JSON form of d.
func DiagnosticViewOf(d assetgraph.Diagnostic) DiagnosticView {
	v := DiagnosticView{
		Level:  d.Level.String(),
		Code:   string(d.Code),
		Asset:  d.Asset,
		Line:   d.Line,
		Status: d.Status,
	}
	if d.Err != nil {
		v.Message = d.Message()
	}
	return v
}

// errNotFound reports an unknown asset reference.
var errNotFound = errors.New("not found")
