package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	toml := filepath.Join(dir, "assetgraph.toml")
	writeFile(t, toml, `
root = "https://example.com/"
include = ["^https://example\\.com/"]
types = ["Css", "Html"]
concurrency = 4

[cache]
ttl = "1h"
redis_url = "redis://localhost:6379/0"

[http]
timeout = "5s"
retries = 1
`)
	yaml := filepath.Join(dir, "assetgraph.yaml")
	writeFile(t, yaml, `
root: https://example.com/
include: ['^https://example\.com/']
types: [Css, Html]
concurrency: 4
cache:
  ttl: 1h
  redis_url: redis://localhost:6379/0
http:
  timeout: 5s
  retries: 1
`)

	for _, path := range []string{toml, yaml} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := loadConfig(path)
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.Root != "https://example.com/" || cfg.Concurrency != 4 {
				t.Errorf("root/concurrency = %q/%d", cfg.Root, cfg.Concurrency)
			}
			if len(cfg.Include) != 1 || cfg.Include[0] != `^https://example\.com/` {
				t.Errorf("include = %q", cfg.Include)
			}
			if strings.Join(cfg.Types, ",") != "Css,Html" {
				t.Errorf("types = %q", cfg.Types)
			}
			if cfg.Cache.TTL != "1h" || cfg.Cache.RedisURL != "redis://localhost:6379/0" {
				t.Errorf("cache = %+v", cfg.Cache)
			}
			if cfg.HTTP.Timeout != "5s" || cfg.HTTP.Retries != 1 {
				t.Errorf("http = %+v", cfg.HTTP)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.Concurrency != def.Concurrency || cfg.HTTP != def.HTTP || cfg.Cache != def.Cache {
		t.Errorf("loadConfig(\"\") = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadConfigDiscovery(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "assetgraph.yml"), "concurrency: 2\n")
	writeFile(t, filepath.Join(dir, "assetgraph.toml"), "concurrency = 3\n")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("concurrency = %d, want the toml file to win", cfg.Concurrency)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad ttl", "a.toml", "[cache]\nttl = \"soon\"\n", "cache.ttl"},
		{"bad timeout", "b.yaml", "http:\n  timeout: 5 seconds\n", "http.timeout"},
		{"bad pattern", "c.toml", "exclude = [\"(\"]\n", "exclude"},
		{"negative retries", "d.yaml", "http:\n  retries: -1\n", "retries"},
		{"syntax", "e.toml", "root = \n", "parse"},
		{"format", "f.json", "{}", "unsupported config format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)
			_, err := loadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("loadConfig() error = %v, want %q", err, tt.wantErr)
			}
		})
	}

	if _, err := loadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("loadConfig(missing) should fail")
	}
}

func TestMergePrecedence(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Root = "https://from-file.example/"
	cfg.Concurrency = 4
	cfg.Types = []string{"Css"}
	cfg.Exclude = []string{`\.png$`}
	cfg.HTTP.Timeout = "2s"

	var f graphFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	for name, value := range map[string]string{"concurrency": "2", "type": "Html,JavaScript", "no-cache": "true"} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatal(err)
		}
	}

	s, err := f.merge(cmd, cfg)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if s.root != "https://from-file.example/" {
		t.Errorf("root = %q, want the config value", s.root)
	}
	if s.concurrency != 2 {
		t.Errorf("concurrency = %d, want the flag value", s.concurrency)
	}
	if !s.types["Html"] || !s.types["JavaScript"] || s.types["Css"] {
		t.Errorf("types = %v, want the flag value", s.types)
	}
	if len(s.exclude) != 1 || !s.exclude[0].MatchString("a.png") {
		t.Errorf("exclude = %v", s.exclude)
	}
	if s.timeout != 2*time.Second || s.ttl != 24*time.Hour {
		t.Errorf("timeout/ttl = %v/%v", s.timeout, s.ttl)
	}
	if !s.noCache {
		t.Error("noCache not set")
	}
	if !strings.HasSuffix(s.cacheDir, appName) {
		t.Errorf("cacheDir = %q, want the XDG default", s.cacheDir)
	}
}

func TestMergeRejectsBadFlag(t *testing.T) {
	var f graphFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.Flags().Set("include", "[a-"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.merge(cmd, DefaultConfig()); err == nil {
		t.Error("merge should reject an invalid --include pattern")
	}
}
