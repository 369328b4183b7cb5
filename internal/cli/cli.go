package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	"github.com/matzehuels/assetgraph/pkg/assetgraph/kinds/all"
	"github.com/matzehuels/assetgraph/pkg/buildinfo"
	"github.com/matzehuels/assetgraph/pkg/cache"
	"github.com/matzehuels/assetgraph/pkg/loader"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "assetgraph"

	// cacheKeyPrefix scopes cache entries so a shared Redis can hold
	// entries of other tools.
	cacheKeyPrefix = "assetgraph:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Assetgraph loads web assets and the references between them",
		Long: `Assetgraph builds a graph of a web site or app: pages, stylesheets, scripts,
images and everything else they reference, with one relation per reference.

Seeds are URLs or local paths. The graph is populated by following references
from the seeds; use --include, --exclude and --type to limit what is followed.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.populateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Graph Factory
// =============================================================================

// newGraph creates an empty graph over the loader described by s. The
// returned close function releases the cache backend.
func (c *CLI) newGraph(ctx context.Context, s *settings) (*assetgraph.Graph, func(), error) {
	l, closeCache, err := newLoader(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	g, err := assetgraph.New(assetgraph.Options{
		Root:     s.root,
		Registry: all.Registry(),
		Loader:   l,
		Logger:   c.Logger,
	})
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return g, closeCache, nil
}

// populate loads the seeds into g and follows their relations.
func populate(ctx context.Context, g *assetgraph.Graph, s *settings, seeds []string) error {
	if _, err := g.LoadAssets(ctx, seeds...); err != nil {
		return err
	}
	return g.Populate(ctx, assetgraph.PopulateOptions{
		Include:     s.includeFunc(),
		Concurrency: s.concurrency,
	})
}

// includeFunc builds the population predicate. Only http, https and file
// targets are ever followed; the patterns and types narrow that further.
func (s *settings) includeFunc() func(*assetgraph.Relation) bool {
	follow := assetgraph.FollowSchemes("http", "https", "file")
	return func(r *assetgraph.Relation) bool {
		if !follow(r) {
			return false
		}
		u := r.To().URL()
		if len(s.include) > 0 && !matchAny(s.include, u) {
			return false
		}
		if matchAny(s.exclude, u) {
			return false
		}
		return s.types == nil || s.types[r.To().Type()]
	}
}

// =============================================================================
// Loader Factory
// =============================================================================

// newLoader stacks the scheme mux behind the memory and persistent caches.
func newLoader(ctx context.Context, s *settings) (loader.Loader, func(), error) {
	client := &http.Client{Timeout: s.timeout}
	hl := loader.NewHTTPLoader(client, &loader.HTTPOptions{
		Attempts: s.retries + 1,
		Headers:  map[string]string{"User-Agent": buildinfo.UserAgent()},
	})

	backend, err := newCache(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	l, err := loader.NewCached(loader.Default(hl), backend, loader.CacheOptions{
		TTL:     s.ttl,
		Keyer:   cache.NewScopedKeyer(cache.NewDefaultKeyer(), cacheKeyPrefix),
		Refresh: s.refresh,
	})
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return l, func() { _ = backend.Close() }, nil
}

func newCache(ctx context.Context, s *settings) (cache.Cache, error) {
	switch {
	case s.noCache:
		return cache.NewNullCache(), nil
	case s.redisURL != "":
		return cache.NewRedisCache(ctx, s.redisURL, "")
	case s.cacheDir == "":
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(s.cacheDir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/assetgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
