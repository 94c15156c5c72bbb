package catalog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nirmalj2002/batchlens/pkg/source"
)

// Progress is one event emitted while a sync runs.
type Progress struct {
	Stage   string `json:"stage"` // "table", "date", "file", "done"
	Table   string `json:"table,omitempty"`
	Date    string `json:"date,omitempty"`
	File    string `json:"file,omitempty"`
	Message string `json:"message,omitempty"`
}

// SyncReport summarizes one Sync run.
type SyncReport struct {
	Tables         int `json:"tables"`
	DatesSynced    int `json:"dates_synced"`
	FilesCataloged int `json:"files_cataloged"`
	EntriesWritten int `json:"entries_written"`
}

// Loader incrementally synchronizes the catalog against the lake: new
// partition dates are discovered per table, and within a date only
// files that are new or whose size changed are re-read. Metadata writes
// are idempotent upserts, so re-running a sync is always safe.
type Loader struct {
	lake  Lake
	store Store

	// now is swappable for tests.
	now func() time.Time
}

// NewLoader creates a loader over lake and store.
func NewLoader(lake Lake, store Store) *Loader {
	return &Loader{lake: lake, store: store, now: time.Now}
}

// Sync brings the catalog up to date for every table in the lake.
// onProgress may be nil.
func (l *Loader) Sync(ctx context.Context, onProgress func(Progress)) (*SyncReport, error) {
	emit := onProgress
	if emit == nil {
		emit = func(Progress) {}
	}

	tables, err := l.lake.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}

	report := &SyncReport{Tables: len(tables)}
	for _, table := range tables {
		emit(Progress{Stage: "table", Table: table})

		lakeDates, err := l.lake.Dates(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("discover dates for %s: %w", table, err)
		}
		knownDates, err := l.store.Dates(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("cataloged dates for %s: %w", table, err)
		}

		missing := diffDates(lakeDates, knownDates)
		if len(missing) == 0 {
			log.Printf("catalog: %s up to date (%d dates)", table, len(knownDates))
			continue
		}
		log.Printf("catalog: %s has %d new dates %v", table, len(missing), missing)

		for _, date := range missing {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			emit(Progress{Stage: "date", Table: table, Date: date})
			files, entries, err := l.SyncDate(ctx, table, date, emit)
			if err != nil {
				return nil, err
			}
			report.DatesSynced++
			report.FilesCataloged += files
			report.EntriesWritten += entries
		}
	}

	emit(Progress{Stage: "done", Message: fmt.Sprintf("%d dates synced, %d entries written", report.DatesSynced, report.EntriesWritten)})
	return report, nil
}

// SyncDate catalogs one table/date partition. Files already cataloged
// with an unchanged size are skipped. Returns the number of files read
// and entries written.
func (l *Loader) SyncDate(ctx context.Context, table, date string, emit func(Progress)) (int, int, error) {
	if emit == nil {
		emit = func(Progress) {}
	}

	files, err := l.lake.Files(ctx, table, date)
	if err != nil {
		return 0, 0, fmt.Errorf("list %s/%s: %w", table, date, err)
	}
	if len(files) == 0 {
		log.Printf("catalog: no files for %s/%s", table, date)
		return 0, 0, nil
	}

	knownSizes, err := l.knownFileSizes(ctx, table, date)
	if err != nil {
		return 0, 0, err
	}

	var (
		filesRead int
		entries   []FileMeta
	)
	for _, f := range files {
		if size, ok := knownSizes[f.Path]; ok && size == f.Size {
			continue
		}
		emit(Progress{Stage: "file", Table: table, Date: date, File: f.Path})

		fileEntries, err := l.readFileMeta(ctx, table, f)
		if err != nil {
			return 0, 0, err
		}
		entries = append(entries, fileEntries...)
		filesRead++
	}

	if len(entries) == 0 {
		log.Printf("catalog: %s/%s has no new or changed files", table, date)
		return 0, 0, nil
	}
	if err := l.store.Upsert(ctx, entries); err != nil {
		return 0, 0, fmt.Errorf("upsert %s/%s: %w", table, date, err)
	}
	log.Printf("catalog: wrote %d entries for %s/%s (%d files)", len(entries), table, date, filesRead)
	return filesRead, len(entries), nil
}

func (l *Loader) knownFileSizes(ctx context.Context, table, date string) (map[string]int64, error) {
	existing, err := l.store.Query(ctx, Filter{Table: table, Date: date})
	if err != nil {
		return nil, fmt.Errorf("query existing %s/%s: %w", table, date, err)
	}
	sizes := make(map[string]int64, len(existing))
	for _, e := range existing {
		sizes[e.FileName] = e.FileSize
	}
	return sizes, nil
}

func (l *Loader) readFileMeta(ctx context.Context, table string, f File) ([]FileMeta, error) {
	r, size, err := l.lake.Open(ctx, f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer r.Close()

	chunks, err := source.ReadColumnMeta(r, size)
	if err != nil {
		return nil, fmt.Errorf("metadata of %s: %w", f.Path, err)
	}

	now := l.now().UTC()
	entries := make([]FileMeta, len(chunks))
	for i, c := range chunks {
		entries[i] = FileMeta{
			Table:        table,
			FileName:     f.Path,
			FileSize:     f.Size,
			RowGroup:     c.RowGroup,
			ColumnName:   c.ColumnName,
			PhysicalType: c.PhysicalType,
			LogicalType:  c.LogicalType,
			NumValues:    c.NumValues,
			Compression:  c.Compression,
			StatsMin:     c.StatsMin,
			StatsMax:     c.StatsMax,
			Region:       f.Region,
			EODDate:      f.EODDate,
			LastUpdated:  now,
		}
	}
	return entries, nil
}

// diffDates returns the lake dates not yet in the catalog, sorted.
func diffDates(lakeDates, knownDates []string) []string {
	known := make(map[string]struct{}, len(knownDates))
	for _, d := range knownDates {
		known[d] = struct{}{}
	}
	var missing []string
	for _, d := range lakeDates {
		if _, ok := known[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}
