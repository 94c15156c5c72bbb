package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
	cbadger "github.com/nirmalj2002/batchlens/pkg/catalog/badger"
	"github.com/nirmalj2002/batchlens/pkg/catalog/memory"
	"github.com/nirmalj2002/batchlens/pkg/config"
	"github.com/nirmalj2002/batchlens/pkg/source"
	"github.com/nirmalj2002/batchlens/pkg/variance"
)

var (
	configPath string
	cfg        *config.Config

	rootCmd = &cobra.Command{
		Use:   "batchlens",
		Short: "Day-over-day variance analysis for partitioned batch metrics",
		Long: `batchlens compares end-of-day batch metric snapshots, flags the
parameter groups whose resource usage moved beyond thresholds, and
maintains a queryable metadata catalog of the underlying parquet lake.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			return err
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to batchlens.yaml (optional)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(serveCmd)
}

// buildSource creates the configured data source.
func buildSource() (variance.Source, error) {
	if cfg.Source.Kind == "s3" {
		return source.NewS3(cfg.SourceS3Config())
	}
	return source.NewLocal(cfg.Source.Root), nil
}

// buildStore creates the configured catalog backend.
func buildStore() (catalog.Store, error) {
	if cfg.Catalog.Backend == "memory" {
		return memory.New(), nil
	}
	if err := os.MkdirAll(cfg.Catalog.Path, 0o755); err != nil {
		return nil, err
	}
	return cbadger.New(cbadger.Config{
		Path:        cfg.Catalog.Path,
		MaxMemoryMB: cfg.Catalog.MaxMemoryMB,
	})
}

// buildLake creates the lake view used by catalog sync and pruned scans.
func buildLake() (catalog.Lake, error) {
	if cfg.Source.Kind == "s3" {
		return catalog.NewS3Lake(cfg.SourceS3Config())
	}
	return catalog.NewLocalLake(cfg.Source.Root), nil
}
