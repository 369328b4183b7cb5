package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Options configures a [Server].
type Options struct {
	// Addr is the listen address. Defaults to [DefaultAddr].
	Addr string

	// Logger receives request logs. Defaults to log.Default().
	Logger *log.Logger
}

// Server exposes a graph over HTTP.
type Server struct {
	mu     sync.RWMutex
	g      *assetgraph.Graph
	logger *log.Logger
	http   *http.Server
}

// New creates a server for g.
func New(g *assetgraph.Graph, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{g: g, logger: opts.Logger}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", s.handleAssets)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleAsset)
			r.Get("/text", s.handleText)
			r.Get("/raw", s.handleRaw)
		})
	})
	r.Get("/relations", s.handleRelations)
	r.Get("/warnings", s.handleWarnings)
	r.Get("/graph", s.handleGraph)
	return r
}

// Update runs fn with exclusive access to the graph.
func (s *Server) Update(fn func(*assetgraph.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.g)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// ListenAndServe serves until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("serving asset graph", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
