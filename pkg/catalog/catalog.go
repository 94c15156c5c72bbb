package catalog

import (
	"context"
	"time"
)

// FileMeta is one catalog entry: the metadata of a single column chunk
// within a row group of a partitioned data file. The identity
// (Table, FileName, RowGroup, ColumnName) is unique; writing the same
// identity again replaces the previous entry.
type FileMeta struct {
	Table    string `json:"table"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`

	RowGroup     int    `json:"row_group"`
	ColumnName   string `json:"column_name"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	NumValues    int64  `json:"num_values"`
	Compression  string `json:"compression"`
	StatsMin     string `json:"statistics_min"`
	StatsMax     string `json:"statistics_max"`

	Region  string `json:"region"`
	EODDate string `json:"eod_date"`

	LastUpdated time.Time `json:"last_updated"`
}

// Filter narrows a catalog query. Zero-value fields are ignored.
// DateFrom/DateTo are inclusive and compare lexicographically, which is
// correct for YYYY-MM-DD strings.
type Filter struct {
	Table    string
	Region   string
	Date     string
	DateFrom string
	DateTo   string
	Column   string
}

// TableSummary is one row of the catalog health view: file volume per
// (table, region, date).
type TableSummary struct {
	Table    string `json:"table"`
	Region   string `json:"region"`
	EODDate  string `json:"eod_date"`
	NumFiles int    `json:"num_files"`

	// TotalRows sums each row group's value count once (via its first
	// column chunk) rather than across every column.
	TotalRows int64 `json:"total_rows"`
}

// Stats provides catalog usage info.
type Stats struct {
	TotalEntries uint64    `json:"total_entries"`
	TotalFiles   uint64    `json:"total_files"`
	TotalTables  uint64    `json:"total_tables"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Store is the catalog storage contract.
// Implementations: memory (testing), badger (persistent).
type Store interface {
	// Upsert writes entries, replacing any existing entry with the
	// same identity. Idempotent; there are no broader transactional
	// guarantees.
	Upsert(ctx context.Context, entries []FileMeta) error

	// Query returns the entries matching the filter.
	Query(ctx context.Context, f Filter) ([]FileMeta, error)

	// Tables returns the distinct cataloged table names, sorted.
	Tables(ctx context.Context) ([]string, error)

	// Dates returns the distinct cataloged eod_dates for a table,
	// sorted ascending.
	Dates(ctx context.Context, table string) ([]string, error)

	// Summary returns file counts and row volumes per
	// (table, region, date), newest date first.
	Summary(ctx context.Context) ([]TableSummary, error)

	// Stats returns catalog usage statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close cleanly shuts down the store.
	Close() error
}

// Matches reports whether entry m passes the filter. Shared by the
// store backends.
func (f Filter) Matches(m FileMeta) bool {
	if f.Table != "" && m.Table != f.Table {
		return false
	}
	if f.Region != "" && m.Region != f.Region {
		return false
	}
	if f.Date != "" && m.EODDate != f.Date {
		return false
	}
	if f.DateFrom != "" && m.EODDate < f.DateFrom {
		return false
	}
	if f.DateTo != "" && m.EODDate > f.DateTo {
		return false
	}
	if f.Column != "" && m.ColumnName != f.Column {
		return false
	}
	return true
}
