// Package badger provides the persistent catalog store backed by
// BadgerDB (LSM tree). Entries are keyed by table, date and file so
// that table and date scoped queries translate to prefix scans.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
)

// Store implements catalog.Store using BadgerDB.
type Store struct {
	db *badger.DB
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = use defaults)
	// Recommended: 64-128 MB for local dev, 256-512 MB for production
	MaxMemoryMB int64
}

// New creates a BadgerDB catalog store
func New(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// SAFETY: Conservative memory limits. BadgerDB defaults assume a
	// large server; catalog metadata is tiny, so cap everything low.
	var memTableSize int64
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3 // ~33% for memtable
	} else {
		// 16 MB memtable is the minimum for decent performance
		memTableSize = 16 * 1024 * 1024
	}

	blockCacheSize := memTableSize / 2 // Block cache: 50% of memtable
	indexCacheSize := memTableSize / 4 // Index cache: 25% of memtable

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1). // Upsert replaces, no versioning needed

		WithMemTableSize(memTableSize).
		WithNumMemtables(3).

		WithBlockCacheSize(blockCacheSize).
		WithIndexCacheSize(indexCacheSize).

		WithMaxLevels(4).               // Reduce LSM depth (default 7) for small datasets
		WithNumLevelZeroTables(2).      // Trigger compaction earlier (default 5)
		WithNumLevelZeroTablesStall(4). // Hard limit before stalling writes (default 10)
		WithValueThreshold(1024).       // Catalog entries are small JSON blobs
		WithNumCompactors(2). // badger requires at least 2 compactors

		WithValueLogMaxEntries(5000).
		WithValueLogFileSize(64 << 20) // 64 MB value log files instead of default 2GB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{db: db}, nil
}

// Upsert writes entries, replacing any existing entry with the same
// (table, file, row group, column) identity.
// CRITICAL: Enforces context timeout/cancellation to prevent indefinite blocking
func (s *Store) Upsert(ctx context.Context, entries []catalog.FileMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			for i, e := range entries {
				// Check context periodically (every 100 entries)
				if i%100 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				value, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("failed to encode catalog entry: %w", err)
				}

				if err := txn.Set(makeKey(e), value); err != nil {
					return fmt.Errorf("failed to write catalog entry: %w", err)
				}
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("upsert operation cancelled: %w", ctx.Err())
	}
}

// Query returns the entries matching the filter, in stable
// (file, row group, column) order.
func (s *Store) Query(ctx context.Context, f catalog.Filter) ([]catalog.FileMeta, error) {
	var results []catalog.FileMeta
	err := s.scan(ctx, queryPrefix(f), func(e catalog.FileMeta) {
		if f.Matches(e) {
			results = append(results, e)
		}
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FileName != b.FileName {
			return a.FileName < b.FileName
		}
		if a.RowGroup != b.RowGroup {
			return a.RowGroup < b.RowGroup
		}
		return a.ColumnName < b.ColumnName
	})
	return results, nil
}

// Tables returns the distinct cataloged tables, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.scan(ctx, keyPrefix, func(e catalog.FileMeta) {
		seen[e.Table] = struct{}{}
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

// Dates returns the distinct cataloged dates for a table, sorted.
func (s *Store) Dates(ctx context.Context, table string) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.scan(ctx, keyPrefix+table+"/", func(e catalog.FileMeta) {
		seen[e.EODDate] = struct{}{}
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

// Summary aggregates file counts and row volumes per
// (table, region, date), newest date first.
func (s *Store) Summary(ctx context.Context) ([]catalog.TableSummary, error) {
	type groupKey struct{ table, region, date string }
	type group struct {
		files map[string]struct{}
		rows  int64
		// one NumValues sample per (file, row group)
		counted map[string]struct{}
	}

	groups := make(map[groupKey]*group)
	err := s.scan(ctx, keyPrefix, func(e catalog.FileMeta) {
		k := groupKey{e.Table, e.Region, e.EODDate}
		g, ok := groups[k]
		if !ok {
			g = &group{files: make(map[string]struct{}), counted: make(map[string]struct{})}
			groups[k] = g
		}
		g.files[e.FileName] = struct{}{}

		rgKey := e.FileName + "#" + strconv.Itoa(e.RowGroup)
		if _, done := g.counted[rgKey]; !done {
			g.counted[rgKey] = struct{}{}
			g.rows += e.NumValues
		}
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]catalog.TableSummary, 0, len(groups))
	for k, g := range groups {
		summaries = append(summaries, catalog.TableSummary{
			Table:     k.table,
			Region:    k.region,
			EODDate:   k.date,
			NumFiles:  len(g.files),
			TotalRows: g.rows,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.EODDate != b.EODDate {
			return a.EODDate > b.EODDate
		}
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.Region < b.Region
	})
	return summaries, nil
}

// Stats returns catalog usage statistics.
func (s *Store) Stats(ctx context.Context) (*catalog.Stats, error) {
	stats := &catalog.Stats{}
	files := make(map[string]struct{})
	tables := make(map[string]struct{})

	err := s.scan(ctx, keyPrefix, func(e catalog.FileMeta) {
		stats.TotalEntries++
		files[e.FileName] = struct{}{}
		tables[e.Table] = struct{}{}
		if e.LastUpdated.After(stats.LastUpdated) {
			stats.LastUpdated = e.LastUpdated
		}
	})
	if err != nil {
		return nil, err
	}

	stats.TotalFiles = uint64(len(files))
	stats.TotalTables = uint64(len(tables))
	return stats, nil
}

// Close shuts down BadgerDB cleanly
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs BadgerDB's value log garbage collection.
// discardRatio: run GC if this fraction of a file can be discarded (0.5 = 50%)
func (s *Store) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// scan iterates entries under a key prefix and decodes each value.
// CRITICAL: Enforces context timeout/cancellation to prevent indefinite blocking
func (s *Store) scan(ctx context.Context, prefix string, fn func(catalog.FileMeta)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchSize = 100
			opts.Prefix = []byte(prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			var iterCount int
			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++

				// Check for context cancellation every 1000 iterations
				if iterCount%1000 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				err := it.Item().Value(func(val []byte) error {
					var e catalog.FileMeta
					if err := json.Unmarshal(val, &e); err != nil {
						return fmt.Errorf("failed to decode catalog entry: %w", err)
					}
					fn(e)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("scan operation cancelled: %w", ctx.Err())
	}
}

const keyPrefix = "meta/"

// makeKey creates a sortable key so that table and date scoped lookups
// become prefix scans.
// Format: meta/<table>/<eod_date>/<file_hash>/<row_group>/<column>
func makeKey(e catalog.FileMeta) []byte {
	fileHash := strconv.FormatUint(xxhash.Sum64String(e.FileName), 16)
	key := keyPrefix + e.Table + "/" + e.EODDate + "/" + fileHash +
		"/" + strconv.Itoa(e.RowGroup) + "/" + e.ColumnName
	return []byte(key)
}

// queryPrefix picks the narrowest key prefix a filter allows.
func queryPrefix(f catalog.Filter) string {
	if f.Table == "" {
		return keyPrefix
	}
	if f.Date != "" {
		return keyPrefix + f.Table + "/" + f.Date + "/"
	}
	return keyPrefix + f.Table + "/"
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
