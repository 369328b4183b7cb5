package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/assetgraph/pkg/cache"
)

// configNames are looked up in the working directory when --config is not
// given. The first one found wins.
var configNames = []string{"assetgraph.toml", "assetgraph.yaml", "assetgraph.yml"}

// Config is the project configuration file.
type Config struct {
	// Root is the base URL or directory for relative seeds.
	Root string `toml:"root" yaml:"root"`

	// Include and Exclude are regular expressions matched against the
	// resolved URL of every relation target.
	Include []string `toml:"include" yaml:"include"`
	Exclude []string `toml:"exclude" yaml:"exclude"`

	// Types restricts population to targets of these kinds (e.g. "Css").
	Types []string `toml:"types" yaml:"types"`

	// Concurrency bounds the number of loads in flight.
	Concurrency int `toml:"concurrency" yaml:"concurrency"`

	Cache CacheConfig `toml:"cache" yaml:"cache"`
	HTTP  HTTPConfig  `toml:"http" yaml:"http"`
}

// CacheConfig configures the persistent response cache.
type CacheConfig struct {
	// Dir is the file cache directory. Default: $XDG_CACHE_HOME/assetgraph
	Dir string `toml:"dir" yaml:"dir"`

	// TTL is how long cached responses stay valid. Default: 24h
	TTL string `toml:"ttl" yaml:"ttl"`

	// RedisURL selects the Redis backend instead of the file cache.
	RedisURL string `toml:"redis_url" yaml:"redis_url"`
}

// HTTPConfig configures the HTTP loader.
type HTTPConfig struct {
	// Timeout is the per-request timeout. Default: 30s
	Timeout string `toml:"timeout" yaml:"timeout"`

	// Retries is the number of retries after a transient failure. Default: 2
	Retries int `toml:"retries" yaml:"retries"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 8,
		Cache:       CacheConfig{TTL: cache.DefaultTTL.String()},
		HTTP:        HTTPConfig{Timeout: "30s", Retries: 2},
	}
}

// loadConfig reads the config at path on top of the defaults. An empty
// path searches the working directory; finding nothing is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = findConfig(".")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func findConfig(dir string) string {
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks durations and patterns.
func (c *Config) Validate() error {
	if _, err := parseDuration("cache.ttl", c.Cache.TTL); err != nil {
		return err
	}
	if _, err := parseDuration("http.timeout", c.HTTP.Timeout); err != nil {
		return err
	}
	if _, err := compilePatterns(c.Include); err != nil {
		return fmt.Errorf("include: %w", err)
	}
	if _, err := compilePatterns(c.Exclude); err != nil {
		return fmt.Errorf("exclude: %w", err)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("http.retries must not be negative")
	}
	return nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// =============================================================================
// Graph Flags
// =============================================================================

// graphFlags are shared by every command that builds a graph.
type graphFlags struct {
	config      string
	root        string
	include     []string
	exclude     []string
	types       []string
	concurrency int
	noCache     bool
	refresh     bool
}

func (f *graphFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "config file (default: ./assetgraph.{toml,yaml,yml})")
	fs.StringVar(&f.root, "root", "", "base URL or directory for relative seeds")
	fs.StringArrayVar(&f.include, "include", nil, "only follow URLs matching this regexp (repeatable)")
	fs.StringArrayVar(&f.exclude, "exclude", nil, "never follow URLs matching this regexp (repeatable)")
	fs.StringSliceVar(&f.types, "type", nil, "only follow assets of these kinds (e.g. Css,JavaScript)")
	fs.IntVar(&f.concurrency, "concurrency", 0, "maximum loads in flight")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the persistent response cache")
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached responses and reload")
}

// settings are the effective options after merging flags over the config
// file over the defaults.
type settings struct {
	root        string
	include     []*regexp.Regexp
	exclude     []*regexp.Regexp
	types       map[string]bool
	concurrency int

	noCache  bool
	refresh  bool
	cacheDir string
	ttl      time.Duration
	redisURL string

	timeout time.Duration
	retries int
}

// resolve merges the flags that were set on cmd over the config file.
func (f *graphFlags) resolve(cmd *cobra.Command) (*settings, error) {
	cfg, err := loadConfig(f.config)
	if err != nil {
		return nil, err
	}
	return f.merge(cmd, cfg)
}

func (f *graphFlags) merge(cmd *cobra.Command, cfg *Config) (*settings, error) {
	changed := cmd.Flags().Changed
	if changed("root") {
		cfg.Root = f.root
	}
	if changed("include") {
		cfg.Include = f.include
	}
	if changed("exclude") {
		cfg.Exclude = f.exclude
	}
	if changed("type") {
		cfg.Types = f.types
	}
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &settings{
		root:        cfg.Root,
		concurrency: cfg.Concurrency,
		noCache:     f.noCache,
		refresh:     f.refresh,
		cacheDir:    cfg.Cache.Dir,
		redisURL:    cfg.Cache.RedisURL,
		retries:     cfg.HTTP.Retries,
	}
	s.include, _ = compilePatterns(cfg.Include)
	s.exclude, _ = compilePatterns(cfg.Exclude)
	s.ttl, _ = parseDuration("cache.ttl", cfg.Cache.TTL)
	s.timeout, _ = parseDuration("http.timeout", cfg.HTTP.Timeout)
	if len(cfg.Types) > 0 {
		s.types = make(map[string]bool, len(cfg.Types))
		for _, t := range cfg.Types {
			s.types[t] = true
		}
	}
	if s.cacheDir == "" {
		dir, err := cacheDir()
		if err == nil {
			s.cacheDir = dir
		}
	}
	return s, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
