package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/assetgraph/pkg/assetgraph"
	pkgio "github.com/matzehuels/assetgraph/pkg/io"
	"github.com/matzehuels/assetgraph/pkg/render/nodelink"
)

// defaultOutput is the file written when neither --output nor --format is given.
const defaultOutput = "graph.svg"

// formatJSON writes the node-link snapshot instead of a diagram.
const formatJSON = "json"

func isFormat(f string) bool { return f == formatJSON || nodelink.IsFormat(f) }

func formatNames() string { return strings.Join(append(slices.Clone(nodelink.Formats), formatJSON), ", ") }

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	graph      graphFlags
	output     string   // output file, base path for several formats, or "-" for stdout
	formats    []string // output formats: "dot", "svg", "pdf", "png"
	detailed   bool     // show kinds, load state and relation types
	inline     bool     // draw inline assets as their own nodes
	unresolved bool     // include relations to assets that were not loaded
}

func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <url|path>...",
		Short: "Render the asset graph as a node-link diagram",
		Long: `Populate the graph from the seeds and render it with Graphviz.

The format is taken from --format or else from the extension of --output.
PDF and PNG output require rsvg-convert (librsvg). JSON output is the
node-link snapshot of the graph rather than a diagram.

Examples:
  assetgraph render https://example.com/ -o site.svg
  assetgraph render index.html -o graph.dot --detailed
  assetgraph render index.html --format svg,png -o out/graph`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := resolveFormats(formatsStr, opts.output)
			if err != nil {
				return err
			}
			opts.formats = formats
			if opts.output == "" {
				opts.output = defaultOutput
			}

			g, done, err := c.buildGraph(cmd, &opts.graph, args, opts.output != "-")
			if err != nil {
				return err
			}
			defer done.close()

			if err := runRender(cmd.Context(), cmd.OutOrStdout(), g, &opts); err != nil {
				return err
			}
			if opts.output != "-" {
				printNextStep("Browse it over HTTP", "assetgraph serve "+strings.Join(args, " "))
			}
			return nil
		},
	}

	opts.graph.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, base path for several formats, or - for stdout (default "+defaultOutput+")")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output formats: "+formatNames()+" (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with kind and load state, and edges with relation type")
	cmd.Flags().BoolVar(&opts.inline, "inline", false, "draw inline assets as separate nodes")
	cmd.Flags().BoolVar(&opts.unresolved, "unresolved", false, "include references to assets that were not loaded")

	return cmd
}

// resolveFormats parses the --format flag. Without one the format comes
// from the output extension, defaulting to svg.
func resolveFormats(s, output string) ([]string, error) {
	var formats []string
	if s != "" {
		formats = strings.Split(s, ",")
	} else if ext := strings.TrimPrefix(filepath.Ext(output), "."); isFormat(ext) {
		formats = []string{ext}
	} else {
		formats = []string{"svg"}
	}
	for _, f := range formats {
		if !isFormat(f) {
			return nil, fmt.Errorf("invalid format: %s (must be one of %s)", f, formatNames())
		}
	}
	if len(formats) > 1 && output == "-" {
		return nil, fmt.Errorf("cannot write %d formats to stdout", len(formats))
	}
	return formats, nil
}

// basePath strips a known format extension from output so several
// formats can be written side by side.
func basePath(output string) string {
	ext := filepath.Ext(output)
	if isFormat(strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// runRender writes one file per requested format.
func runRender(ctx context.Context, stdout io.Writer, g *assetgraph.Graph, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	nl := nodelink.Options{Detailed: opts.detailed, Inline: opts.inline, Unresolved: opts.unresolved}

	for _, format := range opts.formats {
		data, err := renderFormat(ctx, g, format, nl)
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		logger.Debugf("Generated %s: %d bytes", format, len(data))

		if opts.output == "-" {
			_, err := stdout.Write(data)
			return err
		}

		path := opts.output
		if strings.TrimPrefix(filepath.Ext(path), ".") != format {
			path = basePath(path) + "." + format
		}
		if err := writeOutput(path, data); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

func renderFormat(ctx context.Context, g *assetgraph.Graph, format string, opts nodelink.Options) ([]byte, error) {
	if format == formatJSON {
		var buf bytes.Buffer
		err := pkgio.WriteJSON(g, &buf)
		return buf.Bytes(), err
	}
	return nodelink.Render(ctx, g, format, opts)
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
