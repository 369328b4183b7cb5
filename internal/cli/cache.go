package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/assetgraph/pkg/cache"
	"github.com/matzehuels/assetgraph/pkg/loader"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persistent response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheWarmCommand())

	return cmd
}

// cacheSettings resolves the cache location from the config file only.
func cacheSettings(cmd *cobra.Command, configPath string) (*settings, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return (&graphFlags{}).merge(cmd, cfg)
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cacheSettings(cmd, configPath)
			if err != nil {
				return err
			}
			if s.redisURL != "" {
				printInfo("Redis entries expire on their own (ttl %s)", s.ttl)
				return nil
			}
			if s.cacheDir == "" {
				return fmt.Errorf("no cache directory")
			}
			if _, err := os.Stat(s.cacheDir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(s.cacheDir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cacheSettings(cmd, configPath)
			if err != nil {
				return err
			}
			if s.cacheDir == "" {
				return fmt.Errorf("get cache dir: no home or XDG_CACHE_HOME")
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.cacheDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file")
	return cmd
}

// cacheWarmCommand creates the "cache warm" subcommand, which loads URLs
// into the persistent cache without building a graph.
func (c *CLI) cacheWarmCommand() *cobra.Command {
	var f graphFlags
	cmd := &cobra.Command{
		Use:   "warm <url|path>...",
		Short: "Load resources into the cache ahead of a run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			if s.noCache {
				return fmt.Errorf("--no-cache leaves nothing to warm")
			}
			urls, err := seedURLs(s.root, args)
			if err != nil {
				return err
			}

			l, closeCache, err := newLoader(ctx, s)
			if err != nil {
				return err
			}
			defer closeCache()

			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading %d resources...", len(urls)))
			spinner.Start()
			n, err := loader.Prefetch(ctx, l, urls, s.concurrency)
			if ctx.Err() != nil {
				spinner.Stop()
				return ctx.Err()
			}
			if n == 0 && len(urls) > 0 {
				spinner.StopWithError(fmt.Sprintf("Cached none of %d resources", len(urls)))
			} else {
				spinner.StopWithSuccess(fmt.Sprintf("Cached %d of %d resources", n, len(urls)))
			}
			if err != nil {
				printWarning("%v", err)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// seedURLs resolves arguments the way the graph resolves seeds.
func seedURLs(root string, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if urltools.HrefTypeOf(a) == urltools.HrefAbsolute || urltools.IsData(a) {
			out = append(out, a)
			continue
		}
		if root != "" {
			base := root
			if urltools.HrefTypeOf(base) != urltools.HrefAbsolute {
				u, err := urltools.FromPath(base)
				if err != nil {
					return nil, err
				}
				base = u
			}
			if !strings.HasSuffix(base, "/") {
				base += "/"
			}
			u, err := urltools.Resolve(base, a)
			if err != nil {
				return nil, err
			}
			out = append(out, u)
			continue
		}
		u, err := urltools.FromPath(a)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
