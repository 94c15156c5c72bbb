package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
	"github.com/nirmalj2002/batchlens/pkg/report"
	"github.com/nirmalj2002/batchlens/pkg/server"
	"github.com/nirmalj2002/batchlens/pkg/variance"
)

var (
	baselineDate string
	compareDate  string
	region       string
	topN         int
	reportDir    string

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Run a variance analysis between two EOD dates",
		RunE:  runAnalyze,
	}

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Bring the metadata catalog up to date with the lake",
		RunE:  runSync,
	}

	filesTable  string
	filesColumn string
	filesOp     string
	filesValue  float64
	filesFrom   string
	filesTo     string

	filesCmd = &cobra.Command{
		Use:   "files",
		Short: "List the data files that survive catalog pruning",
		RunE:  runFiles,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE:  runServe,
	}
)

func init() {
	analyzeCmd.Flags().StringVar(&baselineDate, "baseline", "", "baseline EOD date (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&compareDate, "compare", "", "compare EOD date (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&region, "region", "", "restrict to one region")
	analyzeCmd.Flags().IntVar(&topN, "top-n", 0, "override the rollup size")
	analyzeCmd.Flags().StringVar(&reportDir, "out", "", "report directory (default <report.dir>/<run id>)")
	analyzeCmd.MarkFlagRequired("baseline")
	analyzeCmd.MarkFlagRequired("compare")

	filesCmd.Flags().StringVar(&filesTable, "table", "", "cataloged table name")
	filesCmd.Flags().StringVar(&region, "region", "", "restrict to one region")
	filesCmd.Flags().StringVar(&filesFrom, "from", "", "first EOD date (inclusive)")
	filesCmd.Flags().StringVar(&filesTo, "to", "", "last EOD date (inclusive)")
	filesCmd.Flags().StringVar(&filesColumn, "column", "", "column for the statistics predicate")
	filesCmd.Flags().StringVar(&filesOp, "op", ">", "predicate operator (> >= < <= =)")
	filesCmd.Flags().Float64Var(&filesValue, "value", 0, "predicate value")
	filesCmd.MarkFlagRequired("table")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	src, err := buildSource()
	if err != nil {
		return err
	}

	runCfg := cfg.AnalysisConfigFor(baselineDate, compareDate, region)
	if topN > 0 {
		runCfg.TopN = topN
	}

	result, err := variance.Run(cmd.Context(), src, runCfg)
	if err != nil {
		return err
	}

	dir := reportDir
	if dir == "" {
		dir = filepath.Join(cfg.Report.Dir, result.RunID)
	}
	manifest, err := report.NewSink(dir).WriteAll(result, runCfg.Thresholds)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %s\n", result.RunID, result.Outcome)
	fmt.Printf("  joined groups: %d, flagged: %d\n", len(result.Rows), len(result.Flagged))
	for _, g := range result.TopGroups {
		fmt.Printf("  group %-20s total weighted |%%| %.2f\n", g.ParameterGroup, g.TotalWeightedAbs)
	}
	for _, m := range result.TopModels {
		fmt.Printf("  model %-20s sum |cpu delta| %.2f\n", m.ModelName, m.SumAbsDeltaCPU)
	}
	fmt.Printf("  artifacts: %s (%d files)\n", manifest.Dir, len(manifest.Files))
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	store, err := buildStore()
	if err != nil {
		return err
	}
	defer store.Close()

	lake, err := buildLake()
	if err != nil {
		return err
	}

	loader := catalog.NewLoader(lake, store)
	rep, err := loader.Sync(cmd.Context(), func(p catalog.Progress) {
		if p.Stage == "file" {
			fmt.Printf("  reading %s\n", p.File)
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("synced %d tables: %d new dates, %d files, %d entries\n",
		rep.Tables, rep.DatesSynced, rep.FilesCataloged, rep.EntriesWritten)
	return nil
}

func runFiles(cmd *cobra.Command, args []string) error {
	store, err := buildStore()
	if err != nil {
		return err
	}
	defer store.Close()

	q := catalog.FileQuery{Region: region, DateFrom: filesFrom, DateTo: filesTo}
	if filesColumn != "" {
		q.Predicate = &catalog.ColumnPredicate{Column: filesColumn, Op: filesOp, Value: filesValue}
	}

	files, err := catalog.NewPruner(store, nil).Files(cmd.Context(), filesTable, q)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	fmt.Printf("%d files\n", len(files))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	src, err := buildSource()
	if err != nil {
		return err
	}
	store, err := buildStore()
	if err != nil {
		return err
	}
	defer store.Close()

	lake, err := buildLake()
	if err != nil {
		return err
	}
	loader := catalog.NewLoader(lake, store)
	pruner := catalog.NewPruner(store, lake)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("batchlens serving on :%s (source=%s catalog=%s)",
		cfg.Server.Port, cfg.Source.Kind, cfg.Catalog.Backend)
	return server.New(cfg, src, store, loader, pruner).Run(ctx)
}
