package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
	"github.com/nirmalj2002/batchlens/pkg/catalog/memory"
)

// metricRecord mirrors the batch-metrics file schema for test fixtures.
type metricRecord struct {
	ParameterGroup string  `parquet:"parameter_group"`
	InstanceName   string  `parquet:"instance_name"`
	ModelName      string  `parquet:"model_name"`
	RawHours       float64 `parquet:"calc_node_raw_hours"`
	CPUHours       float64 `parquet:"model_cpu_hours"`
	SecThousands   float64 `parquet:"security_count_thousands"`
}

func writeLakeFile(t *testing.T, root, table, region, date, name string, rows []metricRecord) string {
	t.Helper()
	dir := filepath.Join(root, table, "region="+region, "eod_date="+date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	return path
}

func rec(group, model string, cpu float64) metricRecord {
	return metricRecord{
		ParameterGroup: group,
		InstanceName:   "inst-1",
		ModelName:      model,
		RawHours:       cpu * 2,
		CPUHours:       cpu,
		SecThousands:   1,
	}
}

func TestSyncCatalogsNewDates(t *testing.T) {
	root := t.TempDir()
	writeLakeFile(t, root, "batch_metrics", "APAC", "2025-10-01", "part-0001.parquet",
		[]metricRecord{rec("grpA", "m1", 10), rec("grpB", "m2", 20)})
	writeLakeFile(t, root, "batch_metrics", "APAC", "2025-10-08", "part-0001.parquet",
		[]metricRecord{rec("grpA", "m1", 30)})

	store := memory.New()
	defer store.Close()
	loader := catalog.NewLoader(catalog.NewLocalLake(root), store)

	var stages []string
	report, err := loader.Sync(context.Background(), func(p catalog.Progress) {
		stages = append(stages, p.Stage)
	})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if report.Tables != 1 {
		t.Errorf("expected 1 table, got %d", report.Tables)
	}
	if report.DatesSynced != 2 {
		t.Errorf("expected 2 dates synced, got %d", report.DatesSynced)
	}
	if report.FilesCataloged != 2 {
		t.Errorf("expected 2 files cataloged, got %d", report.FilesCataloged)
	}
	// Six columns per file, one row group each.
	if report.EntriesWritten != 12 {
		t.Errorf("expected 12 entries written, got %d", report.EntriesWritten)
	}

	entries, err := store.Query(context.Background(), catalog.Filter{Table: "batch_metrics", Date: "2025-10-01"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries for first date, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Region != "APAC" || e.EODDate != "2025-10-01" {
			t.Errorf("partition values not stamped: %+v", e)
		}
		if e.FileSize <= 0 {
			t.Errorf("file size not recorded: %+v", e)
		}
		if e.NumValues != 2 {
			t.Errorf("expected 2 values per chunk, got %d", e.NumValues)
		}
		if e.LastUpdated.IsZero() {
			t.Errorf("last updated not stamped: %+v", e)
		}
	}

	var sawTable, sawDate, sawFile, sawDone bool
	for _, s := range stages {
		switch s {
		case "table":
			sawTable = true
		case "date":
			sawDate = true
		case "file":
			sawFile = true
		case "done":
			sawDone = true
		}
	}
	if !sawTable || !sawDate || !sawFile || !sawDone {
		t.Errorf("missing progress stages in %v", stages)
	}
}

func TestSyncSkipsKnownDates(t *testing.T) {
	root := t.TempDir()
	writeLakeFile(t, root, "batch_metrics", "APAC", "2025-10-01", "part-0001.parquet",
		[]metricRecord{rec("grpA", "m1", 10)})

	store := memory.New()
	defer store.Close()
	loader := catalog.NewLoader(catalog.NewLocalLake(root), store)

	if _, err := loader.Sync(context.Background(), nil); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	report, err := loader.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.DatesSynced != 0 || report.EntriesWritten != 0 {
		t.Errorf("expected no-op second sync, got %+v", report)
	}
}

func TestSyncPicksUpNewDateOnly(t *testing.T) {
	root := t.TempDir()
	writeLakeFile(t, root, "batch_metrics", "APAC", "2025-10-01", "part-0001.parquet",
		[]metricRecord{rec("grpA", "m1", 10)})

	store := memory.New()
	defer store.Close()
	loader := catalog.NewLoader(catalog.NewLocalLake(root), store)

	if _, err := loader.Sync(context.Background(), nil); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	writeLakeFile(t, root, "batch_metrics", "APAC", "2025-10-08", "part-0001.parquet",
		[]metricRecord{rec("grpA", "m1", 30)})

	report, err := loader.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.DatesSynced != 1 {
		t.Errorf("expected 1 new date synced, got %d", report.DatesSynced)
	}
}

func TestSyncDateSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	writeLakeFile(t, root, "batch_metrics", "APAC", "2025-10-01", "part-0001.parquet",
		[]metricRecord{rec("grpA", "m1", 10)})

	store := memory.New()
	defer store.Close()
	loader := catalog.NewLoader(catalog.NewLocalLake(root), store)
	ctx := context.Background()

	files, _, err := loader.SyncDate(ctx, "batch_metrics", "2025-10-01", nil)
	if err != nil {
		t.Fatalf("first sync date: %v", err)
	}
	if files != 1 {
		t.Fatalf("expected 1 file read, got %d", files)
	}

	// Unchanged size: nothing to re-read.
	files, entries, err := loader.SyncDate(ctx, "batch_metrics", "2025-10-01", nil)
	if err != nil {
		t.Fatalf("second sync date: %v", err)
	}
	if files != 0 || entries != 0 {
		t.Errorf("expected unchanged file skipped, got files=%d entries=%d", files, entries)
	}

	// Rewrite with more rows: size changes, file is re-cataloged.
	writeLakeFile(t, root, "batch_metrics", "APAC", "2025-10-01", "part-0001.parquet",
		[]metricRecord{rec("grpA", "m1", 10), rec("grpB", "m2", 20), rec("grpC", "m3", 30)})

	files, entries, err = loader.SyncDate(ctx, "batch_metrics", "2025-10-01", nil)
	if err != nil {
		t.Fatalf("third sync date: %v", err)
	}
	if files != 1 {
		t.Errorf("expected changed file re-read, got %d", files)
	}
	if entries != 6 {
		t.Errorf("expected 6 entries rewritten, got %d", entries)
	}

	got, err := store.Query(ctx, catalog.Filter{Table: "batch_metrics", Column: "model_cpu_hours"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].NumValues != 3 {
		t.Errorf("expected refreshed value count 3, got %d", got[0].NumValues)
	}
}

func TestSyncDateEmptyPartition(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "batch_metrics"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	store := memory.New()
	defer store.Close()
	loader := catalog.NewLoader(catalog.NewLocalLake(root), store)

	files, entries, err := loader.SyncDate(context.Background(), "batch_metrics", "2025-10-01", nil)
	if err != nil {
		t.Fatalf("sync date: %v", err)
	}
	if files != 0 || entries != 0 {
		t.Errorf("expected empty partition no-op, got files=%d entries=%d", files, entries)
	}
}
