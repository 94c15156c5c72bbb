// Package memory provides an in-memory catalog store. Data is lost on
// restart; useful for testing and development.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
)

type identity struct {
	table    string
	file     string
	rowGroup int
	column   string
}

// Store keeps catalog entries in a map keyed by their identity.
type Store struct {
	entries map[identity]catalog.FileMeta
	mu      sync.RWMutex
}

// New creates an in-memory catalog store.
func New() *Store {
	return &Store{entries: make(map[identity]catalog.FileMeta)}
}

// Upsert writes entries, replacing any with the same identity.
func (s *Store) Upsert(ctx context.Context, entries []catalog.FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.entries[identity{e.Table, e.FileName, e.RowGroup, e.ColumnName}] = e
	}
	return nil
}

// Query returns the entries matching the filter, in stable
// (file, row group, column) order.
func (s *Store) Query(ctx context.Context, f catalog.Filter) ([]catalog.FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []catalog.FileMeta
	for _, e := range s.entries {
		if f.Matches(e) {
			results = append(results, e)
		}
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
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for id := range s.entries {
		seen[id.table] = struct{}{}
	}
	return sortedKeys(seen), nil
}

// Dates returns the distinct cataloged dates for a table, sorted.
func (s *Store) Dates(ctx context.Context, table string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.entries {
		if e.Table == table {
			seen[e.EODDate] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

// Summary aggregates file counts and row volumes per
// (table, region, date), newest date first.
func (s *Store) Summary(ctx context.Context) ([]catalog.TableSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type groupKey struct{ table, region, date string }
	type group struct {
		files map[string]struct{}
		rows  int64
		// one NumValues sample per (file, row group)
		counted map[string]struct{}
	}

	groups := make(map[groupKey]*group)
	for _, e := range s.entries {
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
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &catalog.Stats{TotalEntries: uint64(len(s.entries))}
	files := make(map[string]struct{})
	tables := make(map[string]struct{})
	for _, e := range s.entries {
		files[e.FileName] = struct{}{}
		tables[e.Table] = struct{}{}
		if e.LastUpdated.After(stats.LastUpdated) {
			stats.LastUpdated = e.LastUpdated
		}
	}
	stats.TotalFiles = uint64(len(files))
	stats.TotalTables = uint64(len(tables))
	return stats, nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
