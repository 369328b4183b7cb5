package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/render/nodelink"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := s.g.Len()
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "assets": n})
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	q := assetgraph.AssetQuery{Type: r.URL.Query().Get("type"), URL: r.URL.Query().Get("url")}
	var err error
	if q.Inline, err = boolParam(r, "inline"); err != nil {
		s.writeError(w, err)
		return
	}
	if q.Loaded, err = boolParam(r, "loaded"); err != nil {
		s.writeError(w, err)
		return
	}
	if m := r.URL.Query().Get("match"); m != "" {
		if q.URLMatch, err = regexp.Compile(m); err != nil {
			s.writeError(w, agerrors.Wrap(agerrors.ErrCodeInvalidInput, err, "invalid match pattern"))
			return
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	assets := s.g.FindAssets(q)
	out := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		out = append(out, AssetViewOf(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	// Discovering relations of a freshly loaded asset may parse it.
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(idParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := a.OutgoingRelations()
	if err != nil {
		s.writeError(w, err)
		return
	}
	in, err := a.IncomingRelations()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AssetDetail{
		AssetView: AssetViewOf(a),
		Outgoing:  relationViews(out),
		Incoming:  relationViews(in),
	})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(idParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	text, err := a.Text()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(idParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	raw, err := a.Raw()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ct := a.ContentType()
	if !a.Kind().Binary {
		ct += "; charset=" + a.Encoding()
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	unresolved, err := boolParam(r, "unresolved")
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := assetgraph.RelationQuery{
		Type:     params.Get("type"),
		FromType: params.Get("fromType"),
		ToType:   params.Get("toType"),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if ref := params.Get("from"); ref != "" {
		if q.From, err = s.lookup(ref); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if ref := params.Get("to"); ref != "" {
		if q.To, err = s.lookup(ref); err != nil {
			s.writeError(w, err)
			return
		}
	}
	rels := s.g.FindRelations(q, unresolved != nil && *unresolved)
	writeJSON(w, http.StatusOK, relationViews(rels))
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.g.Warnings()
	if r.URL.Query().Get("all") == "true" {
		records = s.g.Diagnostics()
	}
	out := make([]DiagnosticView, 0, len(records))
	for _, d := range records {
		out = append(out, DiagnosticViewOf(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "dot"
	}
	if format != "dot" && format != "svg" {
		s.writeError(w, agerrors.New(agerrors.ErrCodeInvalidInput, "format must be dot or svg"))
		return
	}
	opts := nodelink.Options{
		Detailed:   r.URL.Query().Get("detailed") == "true",
		Inline:     r.URL.Query().Get("inline") == "true",
		Unresolved: r.URL.Query().Get("unresolved") == "true",
	}

	s.mu.RLock()
	dot := nodelink.ToDOT(s.g, opts)
	s.mu.RUnlock()

	if format == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		_, _ = w.Write([]byte(dot))
		return
	}
	svg, err := nodelink.RenderSVG(r.Context(), dot)
	if err != nil {
		s.writeError(w, agerrors.Wrap(agerrors.ErrCodeInternal, err, "render graph"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// idParam returns the {id} path segment. URLs in the path arrive escaped.
func idParam(r *http.Request) string {
	ref := chi.URLParam(r, "id")
	if u, err := url.PathUnescape(ref); err == nil {
		return u
	}
	return ref
}

// lookup finds an asset by ID or canonical URL.
func (s *Server) lookup(ref string) (*assetgraph.Asset, error) {
	if a, ok := s.g.AssetByID(ref); ok {
		return a, nil
	}
	if a, ok := s.g.Asset(ref); ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset %q: %w", ref, errNotFound)
}

func boolParam(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, agerrors.New(agerrors.ErrCodeInvalidInput, "%s must be a boolean, got %q", name, v)
	}
	return &b, nil
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, assetgraph.ErrNotLoaded):
		return http.StatusConflict
	}
	switch agerrors.GetCode(err) {
	case agerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case agerrors.ErrCodeInvalidInput, agerrors.ErrCodeInvalidURL, agerrors.ErrCodeUsage:
		return http.StatusBadRequest
	case agerrors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	case agerrors.ErrCodeLoad:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	resp := ErrorResponse{Error: err.Error(), Code: string(agerrors.GetCode(err))}
	if resp.Code != "" {
		resp.Error = agerrors.UserMessage(err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
