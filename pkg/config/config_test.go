package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batchlens.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port, got %q", cfg.Server.Port)
	}
	if cfg.Catalog.Backend != "badger" {
		t.Errorf("expected badger backend, got %q", cfg.Catalog.Backend)
	}
	if th := cfg.Thresholds(); th != variance.DefaultThresholds() {
		t.Errorf("expected default thresholds, got %+v", th)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
source:
  kind: local
  root: /data/lake
catalog:
  backend: memory
analysis:
  pct_threshold: 0.5
  cpu_delta: 2
  top_n: 3
  nan_policy: propagate
report:
  dir: /tmp/reports
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Catalog.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.Catalog.Backend)
	}

	th := cfg.Thresholds()
	if th.Pct != 0.5 || th.CPU != 2 {
		t.Errorf("expected overridden thresholds, got %+v", th)
	}
	// Unset thresholds keep their defaults.
	if th.Raw != variance.DefaultThresholds().Raw {
		t.Errorf("expected default raw delta, got %v", th.Raw)
	}
	if cfg.NaNPolicy() != variance.NaNPropagate {
		t.Errorf("expected propagate policy")
	}

	run := cfg.AnalysisConfigFor("2025-10-01", "2025-10-08", "APAC")
	if run.TopN != 3 || run.Region != "APAC" {
		t.Errorf("unexpected run config: %+v", run)
	}
}

func TestLoadPortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "7777")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7777" {
		t.Errorf("expected env port 7777, got %q", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad source kind", func(c *Config) { c.Source.Kind = "ftp" }, true},
		{"local without root", func(c *Config) { c.Source.Root = "" }, true},
		{"s3 without bucket", func(c *Config) { c.Source.Kind = "s3" }, true},
		{"bad backend", func(c *Config) { c.Catalog.Backend = "sqlite" }, true},
		{"badger without path", func(c *Config) { c.Catalog.Path = "" }, true},
		{"bad nan policy", func(c *Config) { c.Analysis.NaNPolicy = "ignore" }, true},
		{"memory without path ok", func(c *Config) { c.Catalog.Backend = "memory"; c.Catalog.Path = "" }, false},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		err := cfg.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
