package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
)

func entry(table, file string, rowGroup int, column, region, date string) catalog.FileMeta {
	return catalog.FileMeta{
		Table:        table,
		FileName:     file,
		FileSize:     2048,
		RowGroup:     rowGroup,
		ColumnName:   column,
		PhysicalType: "DOUBLE",
		NumValues:    100,
		Compression:  "SNAPPY",
		StatsMin:     "1.5",
		StatsMax:     "88.25",
		Region:       region,
		EODDate:      date,
		LastUpdated:  time.Now().UTC(),
	}
}

func TestBadgerStore_UpsertAndQuery(t *testing.T) {
	// Use in-memory mode for tests
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	err = store.Upsert(ctx, []catalog.FileMeta{
		entry("batch_metrics", "f1.parquet", 0, "model_cpu_hours", "APAC", "2025-10-01"),
		entry("batch_metrics", "f1.parquet", 0, "calc_node_raw_hours", "APAC", "2025-10-01"),
		entry("batch_metrics", "f2.parquet", 0, "model_cpu_hours", "EMEA", "2025-10-08"),
		entry("ref_data", "g1.parquet", 0, "model_cpu_hours", "APAC", "2025-10-01"),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := store.Query(ctx, catalog.Filter{Table: "batch_metrics"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(results))
	}

	// Exact date filters use a narrower key prefix.
	results, err = store.Query(ctx, catalog.Filter{Table: "batch_metrics", Date: "2025-10-08"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].Region != "EMEA" {
		t.Errorf("Expected single EMEA entry, got %v", results)
	}

	// Upsert with the same identity replaces.
	changed := entry("batch_metrics", "f1.parquet", 0, "model_cpu_hours", "APAC", "2025-10-01")
	changed.StatsMax = "200.0"
	if err := store.Upsert(ctx, []catalog.FileMeta{changed}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	results, err = store.Query(ctx, catalog.Filter{Table: "batch_metrics", Column: "model_cpu_hours"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(results))
	}
	if results[0].StatsMax != "200.0" {
		t.Errorf("Expected replaced stats_max, got %q", results[0].StatsMax)
	}
}

func TestBadgerStore_TablesDatesSummary(t *testing.T) {
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	err = store.Upsert(ctx, []catalog.FileMeta{
		entry("batch_metrics", "f1.parquet", 0, "model_cpu_hours", "APAC", "2025-10-01"),
		entry("batch_metrics", "f1.parquet", 1, "model_cpu_hours", "APAC", "2025-10-01"),
		entry("batch_metrics", "f2.parquet", 0, "model_cpu_hours", "APAC", "2025-10-08"),
		entry("ref_data", "g1.parquet", 0, "model_cpu_hours", "AMRS", "2025-10-01"),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	tables, err := store.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if len(tables) != 2 || tables[0] != "batch_metrics" || tables[1] != "ref_data" {
		t.Errorf("Unexpected tables: %v", tables)
	}

	dates, err := store.Dates(ctx, "batch_metrics")
	if err != nil {
		t.Fatalf("Dates failed: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2025-10-01" || dates[1] != "2025-10-08" {
		t.Errorf("Unexpected dates: %v", dates)
	}

	summaries, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("Expected 3 summary rows, got %d", len(summaries))
	}
	if summaries[0].EODDate != "2025-10-08" {
		t.Errorf("Expected newest date first, got %s", summaries[0].EODDate)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 4 || stats.TotalFiles != 3 || stats.TotalTables != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestBadgerStore_Persistence(t *testing.T) {
	// Use temp directory for persistence test
	tmpDir, err := os.MkdirTemp("", "catalog-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()

	// Write with first instance
	{
		store, err := New(Config{Path: tmpDir})
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		err = store.Upsert(ctx, []catalog.FileMeta{
			entry("batch_metrics", "f1.parquet", 0, "model_cpu_hours", "APAC", "2025-10-01"),
		})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	// Reopen and verify data survived
	{
		store, err := New(Config{Path: tmpDir})
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		defer store.Close()

		results, err := store.Query(ctx, catalog.Filter{Table: "batch_metrics"})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("Expected 1 entry after reopen, got %d", len(results))
		}
		if results[0].ColumnName != "model_cpu_hours" {
			t.Errorf("Unexpected entry: %+v", results[0])
		}
	}
}

func TestBadgerStore_ContextCancellation(t *testing.T) {
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Upsert(ctx, []catalog.FileMeta{entry("t", "f", 0, "c", "APAC", "2025-10-01")}); err == nil {
		t.Error("Expected error from cancelled upsert")
	}
	if _, err := store.Query(ctx, catalog.Filter{}); err == nil {
		t.Error("Expected error from cancelled query")
	}
}
