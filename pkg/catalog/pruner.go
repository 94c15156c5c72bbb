package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/nirmalj2002/batchlens/pkg/source"
	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// ColumnPredicate prunes files on a column's recorded maximum
// statistic: keep a file when `statistics_max op Value` holds for at
// least one of its row groups. Supported ops: > >= < <= =.
type ColumnPredicate struct {
	Column string
	Op     string
	Value  float64
}

// FileQuery narrows a pruned file listing.
type FileQuery struct {
	Region    string
	DateFrom  string
	DateTo    string
	Predicate *ColumnPredicate
}

// Pruner answers "which files could hold matching rows" from catalog
// metadata alone, so scans touch only those files instead of the whole
// dataset.
type Pruner struct {
	store Store
	lake  Lake
}

// NewPruner creates a pruner over the catalog store; lake may be nil if
// only Files is used.
func NewPruner(store Store, lake Lake) *Pruner {
	return &Pruner{store: store, lake: lake}
}

// Files returns the distinct file names for table that survive the
// query, sorted. An empty result is a valid "nothing can match", not an
// error.
func (p *Pruner) Files(ctx context.Context, table string, q FileQuery) ([]string, error) {
	filter := Filter{
		Table:    table,
		Region:   q.Region,
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
	}
	if q.Predicate != nil {
		filter.Column = q.Predicate.Column
	}

	entries, err := p.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		if q.Predicate != nil && !q.Predicate.keeps(e) {
			continue
		}
		seen[e.FileName] = struct{}{}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// Scan reads the pruned files into MetricRows, stamping each row with
// its file's partition-derived region and date. The table must follow
// the batch-metrics schema.
func (p *Pruner) Scan(ctx context.Context, table string, q FileQuery) ([]variance.MetricRow, error) {
	files, err := p.Files(ctx, table, q)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	partitions, err := p.filePartitions(ctx, table, files)
	if err != nil {
		return nil, err
	}

	var rows []variance.MetricRow
	for _, file := range files {
		ref, ok := partitions[file]
		if !ok {
			continue
		}
		fileRows, err := p.readFile(ctx, file, ref)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func (p *Pruner) readFile(ctx context.Context, file string, ref source.FileRef) ([]variance.MetricRow, error) {
	r, size, err := p.lake.Open(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	defer r.Close()
	return source.ReadMetricRows(r, size, ref)
}

// filePartitions recovers each pruned file's region and date from its
// catalog entries.
func (p *Pruner) filePartitions(ctx context.Context, table string, files []string) (map[string]source.FileRef, error) {
	entries, err := p.store.Query(ctx, Filter{Table: table})
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}

	wanted := make(map[string]struct{}, len(files))
	for _, f := range files {
		wanted[f] = struct{}{}
	}

	refs := make(map[string]source.FileRef)
	for _, e := range entries {
		if _, ok := wanted[e.FileName]; !ok {
			continue
		}
		refs[e.FileName] = source.FileRef{
			Path:    e.FileName,
			Size:    e.FileSize,
			Region:  e.Region,
			EODDate: e.EODDate,
		}
	}
	return refs, nil
}

func (c *ColumnPredicate) keeps(e FileMeta) bool {
	max, err := strconv.ParseFloat(e.StatsMax, 64)
	if err != nil {
		// No usable statistic: keep the file rather than wrongly
		// pruning it.
		return true
	}
	switch c.Op {
	case ">":
		return max > c.Value
	case ">=":
		return max >= c.Value
	case "<":
		return max < c.Value
	case "<=":
		return max <= c.Value
	case "=", "==":
		return max == c.Value
	default:
		return true
	}
}
