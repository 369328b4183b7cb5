package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/assetgraph/pkg/api"
)

// shutdownTimeout bounds how long in-flight requests may finish after an
// interrupt.
const shutdownTimeout = 5 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	graph graphFlags
	addr  string
}

func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: api.DefaultAddr}

	cmd := &cobra.Command{
		Use:   "serve <url|path>...",
		Short: "Populate the graph and serve it over HTTP",
		Long: `Populate the graph from the seeds and expose it as JSON.

Routes:
  GET /healthz
  GET /assets?type=&url=&inline=&loaded=&match=
  GET /assets/{id}            asset with outgoing and incoming relations
  GET /assets/{id}/text       decoded text
  GET /assets/{id}/raw        raw bytes
  GET /relations?type=&from=&to=&fromType=&toType=&unresolved=
  GET /warnings
  GET /graph?format=dot|svg

Example:
  assetgraph serve https://example.com/ --addr :8080`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, done, err := c.buildGraph(cmd, &opts.graph, args, true)
			if err != nil {
				return err
			}
			defer done.close()

			printSummary(g, done.cached())
			printNewline()

			srv := api.New(g, api.Options{Addr: opts.addr, Logger: c.Logger})
			printInfo("Listening on %s", StyleLink.Render("http://"+displayAddr(srv.Addr())))
			return serve(cmd.Context(), srv)
		},
	}

	opts.graph.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")

	return cmd
}

// httpServer is the part of api.Server that serve drives.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until it fails or ctx is done, then shuts it down.
func serve(ctx context.Context, srv httpServer) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	loggerFromContext(ctx).Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

// displayAddr fills in the host of addresses like ":8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
