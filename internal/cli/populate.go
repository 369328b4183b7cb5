package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/assetgraph/pkg/api"
	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	"github.com/matzehuels/assetgraph/pkg/observability"
)

// populateOpts holds the command-line flags for the populate command.
type populateOpts struct {
	graph graphFlags
	json  bool // print the graph as JSON instead of a summary
}

func (c *CLI) populateCommand() *cobra.Command {
	var opts populateOpts

	cmd := &cobra.Command{
		Use:   "populate <url|path>...",
		Short: "Load seeds, follow their references and summarize the graph",
		Long: `Load one or more seed assets and follow their references.

Examples:
  assetgraph populate https://example.com/
  assetgraph populate site/index.html --type Css,Png
  assetgraph populate index.html --root https://example.com/ --exclude '\.woff2?$'
  assetgraph populate https://example.com/ --json > graph.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, done, err := c.buildGraph(cmd, &opts.graph, args, !opts.json)
			if err != nil {
				return err
			}
			defer done.close()

			if opts.json {
				return writeReport(cmd.OutOrStdout(), g)
			}
			printSummary(g, done.cached())
			printNewline()
			printNextStep("Render the graph", "assetgraph render "+strings.Join(args, " "))
			return nil
		},
	}

	opts.graph.register(cmd)
	cmd.Flags().BoolVar(&opts.json, "json", false, "print assets, relations and warnings as JSON")

	return cmd
}

// =============================================================================
// Graph Building
// =============================================================================

// graphDone releases the resources of a built graph and reports how many
// responses the persistent cache served.
type graphDone struct {
	close func()
	hits  *atomic.Int64
}

func (d graphDone) cached() int { return int(d.hits.Load()) }

// buildGraph resolves the settings for cmd, loads the seeds and populates
// the graph. With showProgress set a spinner counts loads as they finish.
func (c *CLI) buildGraph(cmd *cobra.Command, f *graphFlags, seeds []string, showProgress bool) (*assetgraph.Graph, graphDone, error) {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	s, err := f.resolve(cmd)
	if err != nil {
		return nil, graphDone{}, err
	}
	g, closeCache, err := c.newGraph(ctx, s)
	if err != nil {
		return nil, graphDone{}, err
	}

	hooks := &progressHooks{}
	observability.SetLoadHooks(hooks)
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	var spinner *Spinner
	if showProgress {
		spinner = newSpinnerWithContext(ctx, "Populating...")
		hooks.onLoad = func(n int64) { spinner.SetMessage(fmt.Sprintf("Populating... %d loaded", n)) }
		spinner.Start()
	}

	prog := newProgress(logger)
	err = populate(ctx, g, s, seeds)
	if err != nil {
		if spinner != nil {
			spinner.StopWithError("Populate failed")
		}
		closeCache()
		return nil, graphDone{}, err
	}
	if spinner != nil {
		spinner.Stop()
	}
	prog.done(fmt.Sprintf("Populated %d assets", g.Len()))

	return g, graphDone{close: closeCache, hits: &hooks.hits}, nil
}

// progressHooks counts loads and persistent cache hits of one run.
type progressHooks struct {
	observability.NoopLoadHooks
	observability.NoopCacheHooks

	loads  atomic.Int64
	hits   atomic.Int64
	onLoad func(n int64)
}

func (h *progressHooks) OnLoadComplete(_ context.Context, _ string, _ int, _ time.Duration, _ error) {
	n := h.loads.Add(1)
	if h.onLoad != nil {
		h.onLoad(n)
	}
}

func (h *progressHooks) OnCacheHit(context.Context, string) { h.hits.Add(1) }

// =============================================================================
// Output
// =============================================================================

func printSummary(g *assetgraph.Graph, cached int) {
	assets := g.FindAssets(assetgraph.AssetQuery{})
	relations := g.FindRelations(assetgraph.RelationQuery{}, true)
	warnings := g.Warnings()

	printSuccess("Populated %s", StyleHighlight.Render(seedLabel(g)))
	printStats(len(assets), len(relations), len(warnings), cached)
	printNewline()

	counts := make(map[string]int)
	for _, a := range assets {
		counts[a.Type()]++
	}
	printCounts(counts)

	if len(warnings) > 0 {
		printNewline()
		for _, w := range warnings {
			printWarning("%s", w.Message())
			if w.Asset != "" {
				printDetail("%s", w.Asset)
			}
		}
	}
}

// seedLabel names the graph by its root, or by its first asset when it
// has none.
func seedLabel(g *assetgraph.Graph) string {
	if g.Root() != "" {
		return g.Root()
	}
	for _, a := range g.FindAssets(assetgraph.AssetQuery{Inline: assetgraph.Bool(false)}) {
		if a.URL() != "" {
			return a.URL()
		}
	}
	return "graph"
}

// report is the --json output of populate.
type report struct {
	Root      string               `json:"root,omitempty"`
	Assets    []api.AssetView      `json:"assets"`
	Relations []api.RelationView   `json:"relations"`
	Warnings  []api.DiagnosticView `json:"warnings"`
	Stats     map[string]int       `json:"stats"`
}

func writeReport(w io.Writer, g *assetgraph.Graph) error {
	r := report{
		Root:      g.Root(),
		Assets:    []api.AssetView{},
		Relations: []api.RelationView{},
		Warnings:  []api.DiagnosticView{},
		Stats:     make(map[string]int),
	}
	for _, a := range g.FindAssets(assetgraph.AssetQuery{}) {
		r.Assets = append(r.Assets, api.AssetViewOf(a))
		r.Stats[a.Type()]++
	}
	for _, rel := range g.FindRelations(assetgraph.RelationQuery{}, true) {
		r.Relations = append(r.Relations, api.RelationViewOf(rel))
	}
	for _, d := range g.Warnings() {
		r.Warnings = append(r.Warnings, api.DiagnosticViewOf(d))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
