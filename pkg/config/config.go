// Package config holds the application configuration: defaults, the
// YAML file schema, and environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nirmalj2002/batchlens/pkg/source"
	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// Server defaults
const (
	DefaultPort        = "8080"
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 60 * time.Second
	ShutdownTimeout    = 30 * time.Second
)

// Catalog defaults
const (
	DefaultCatalogBackend = "badger"
	DefaultCatalogPath    = "./data/catalog"
	DefaultMaxMemoryMB    = 48
)

// Analysis defaults mirror variance.DefaultThresholds.
const (
	DefaultReportDir = "./reports"
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Report   ReportConfig   `yaml:"report"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// SourceConfig selects and configures the data source.
// Kind is "local" or "s3".
type SourceConfig struct {
	Kind string `yaml:"kind"`

	// Root is the filesystem directory for the local source, or the
	// lake root for catalog discovery.
	Root string `yaml:"root"`

	S3 S3Config `yaml:"s3"`
}

// S3Config holds the object-store connection settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// CatalogConfig selects and configures the metadata catalog backend.
// Backend is "badger" or "memory".
type CatalogConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	MaxMemoryMB int64  `yaml:"max_memory_mb"`
}

// AnalysisConfig holds the variance thresholds and rollup settings.
// Zero thresholds fall back to the documented defaults.
type AnalysisConfig struct {
	PctThreshold float64 `yaml:"pct_threshold"`
	RawDelta     float64 `yaml:"raw_delta"`
	CPUDelta     float64 `yaml:"cpu_delta"`
	SecDelta     float64 `yaml:"sec_delta"`

	TopN int `yaml:"top_n"`

	// NaNPolicy is "zero" (treat NaN inputs as 0) or "propagate".
	NaNPolicy string `yaml:"nan_policy"`

	RequireChronological bool `yaml:"require_chronological"`
}

// ReportConfig holds the artifact sink settings.
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: DefaultPort},
		Source: SourceConfig{Kind: "local", Root: "./data/lake"},
		Catalog: CatalogConfig{
			Backend:     DefaultCatalogBackend,
			Path:        DefaultCatalogPath,
			MaxMemoryMB: DefaultMaxMemoryMB,
		},
		Report: ReportConfig{Dir: DefaultReportDir},
	}
}

// Load reads a YAML configuration file over the defaults. An empty
// path returns the defaults. PORT in the environment overrides the
// configured server port.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", path, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints a YAML schema cannot.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "local", "s3":
	default:
		return fmt.Errorf("source.kind must be local or s3, got %q", c.Source.Kind)
	}
	if c.Source.Kind == "local" && c.Source.Root == "" {
		return fmt.Errorf("source.root is required for the local source")
	}
	if c.Source.Kind == "s3" && c.Source.S3.Bucket == "" {
		return fmt.Errorf("source.s3.bucket is required for the s3 source")
	}

	switch c.Catalog.Backend {
	case "badger", "memory":
	default:
		return fmt.Errorf("catalog.backend must be badger or memory, got %q", c.Catalog.Backend)
	}
	if c.Catalog.Backend == "badger" && c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required for the badger backend")
	}

	switch c.Analysis.NaNPolicy {
	case "", "zero", "propagate":
	default:
		return fmt.Errorf("analysis.nan_policy must be zero or propagate, got %q", c.Analysis.NaNPolicy)
	}
	return nil
}

// Thresholds maps the analysis settings onto the variance rules,
// falling back to the documented defaults for zero values.
func (c *Config) Thresholds() variance.Thresholds {
	th := variance.DefaultThresholds()
	if c.Analysis.PctThreshold > 0 {
		th.Pct = c.Analysis.PctThreshold
	}
	if c.Analysis.RawDelta > 0 {
		th.Raw = c.Analysis.RawDelta
	}
	if c.Analysis.CPUDelta > 0 {
		th.CPU = c.Analysis.CPUDelta
	}
	if c.Analysis.SecDelta > 0 {
		th.Sec = c.Analysis.SecDelta
	}
	return th
}

// NaNPolicy maps the configured policy name onto the variance enum.
func (c *Config) NaNPolicy() variance.NaNPolicy {
	if c.Analysis.NaNPolicy == "propagate" {
		return variance.NaNPropagate
	}
	return variance.NaNZero
}

// AnalysisConfigFor builds a run configuration for one date pair.
func (c *Config) AnalysisConfigFor(baseline, compare, region string) variance.Config {
	return variance.Config{
		BaselineDate:         baseline,
		CompareDate:          compare,
		Region:               region,
		Thresholds:           c.Thresholds(),
		NaNPolicy:            c.NaNPolicy(),
		RequireChronological: c.Analysis.RequireChronological,
		TopN:                 c.Analysis.TopN,
	}
}

// SourceS3Config maps the YAML settings onto the source package's
// connection config.
func (c *Config) SourceS3Config() source.S3Config {
	return source.S3Config{
		Endpoint:  c.Source.S3.Endpoint,
		AccessKey: c.Source.S3.AccessKey,
		SecretKey: c.Source.S3.SecretKey,
		UseSSL:    c.Source.S3.UseSSL,
		Bucket:    c.Source.S3.Bucket,
		Prefix:    c.Source.S3.Prefix,
	}
}
