/*
Package catalog maintains file-level metadata for a lake of partitioned
tables, so queries can prune files from the catalog instead of scanning
whole datasets.

# Layout

The lake is a collection of Hive-partitioned parquet tables:

	<root>/<table>/region=<REGION>/eod_date=<YYYY-MM-DD>/part-0001.parquet

For every column chunk of every row group of every file the catalog
records the physical and logical type, value count, compression codec,
and min/max statistics, keyed by (table, file, row group, column).
Writes are idempotent upserts; there are no broader transactional
guarantees.

# Incremental sync

Loader.Sync diffs the partition dates present in the lake against those
already cataloged, per table, and reads only files under missing dates.
Within a date, a file already cataloged with an unchanged size is
skipped, so partially synced dates converge on re-run.

# Pruning

Pruner.Files answers a region/date-range/column-statistic query with
the distinct set of files that could hold matching rows; Pruner.Scan
reads just those files. A column predicate compares against the
recorded statistics_max, and a file with unparseable statistics is kept
rather than wrongly pruned.

# Backends

The Store interface has two implementations, following the same split
as the rest of the project:

  - memory: in-memory, for tests and ephemeral runs
  - badger: persistent BadgerDB store

# Usage

	store, _ := badger.New(badger.Config{Path: "./catalog"})
	defer store.Close()

	loader := catalog.NewLoader(catalog.NewLocalLake("/data/hive_data"), store)
	report, err := loader.Sync(ctx, nil)

	pruner := catalog.NewPruner(store, lake)
	files, err := pruner.Files(ctx, "batch_metrics", catalog.FileQuery{
	    Region:   "APAC",
	    DateFrom: "2025-10-01",
	    DateTo:   "2025-10-08",
	})
*/
package catalog
