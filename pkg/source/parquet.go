package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// rowRecord mirrors the in-file columns. Region and eod_date never
// appear here; they come from the partition path.
type rowRecord struct {
	ParameterGroup string  `parquet:"parameter_group"`
	InstanceName   string  `parquet:"instance_name"`
	ModelName      string  `parquet:"model_name"`
	RawHours       float64 `parquet:"calc_node_raw_hours"`
	CPUHours       float64 `parquet:"model_cpu_hours"`
	SecThousands   float64 `parquet:"security_count_thousands"`
}

// readRows decodes one parquet file into MetricRows, stamping each row
// with the file's partition-derived region and date. The schema is
// validated before any row is decoded.
func readRows(r io.ReaderAt, size int64, ref FileRef) ([]variance.MetricRow, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", ref.Path, err)
	}
	if missing := missingColumns(pf.Schema()); len(missing) > 0 {
		return nil, &variance.SchemaError{File: ref.Path, Missing: missing}
	}

	recs, err := parquet.Read[rowRecord](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", ref.Path, err)
	}

	rows := make([]variance.MetricRow, len(recs))
	for i, rec := range recs {
		rows[i] = variance.MetricRow{
			Region:         ref.Region,
			EODDate:        ref.EODDate,
			ParameterGroup: rec.ParameterGroup,
			InstanceName:   rec.InstanceName,
			ModelName:      rec.ModelName,
			RawHours:       rec.RawHours,
			CPUHours:       rec.CPUHours,
			SecThousands:   rec.SecThousands,
		}
	}
	return rows, nil
}

func missingColumns(schema *parquet.Schema) []string {
	present := make(map[string]bool)
	for _, field := range schema.Fields() {
		present[field.Name()] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// ReaderAtCloser is what a parquet decode needs from a backing blob:
// ranged reads for the footer and row groups, and a Close.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

type opener func(ctx context.Context, ref FileRef) (ReaderAtCloser, int64, error)

// ReadMetricRows decodes one parquet blob into MetricRows stamped with
// ref's partition-derived region and date. Exposed for the catalog's
// pruned scans; List/Scan callers never need it directly.
func ReadMetricRows(r io.ReaderAt, size int64, ref FileRef) ([]variance.MetricRow, error) {
	return readRows(r, size, ref)
}

// scanFiles reads every file through open, bounded to scanWorkers
// concurrent reads, and merges the rows. The first error wins; partial
// rows are discarded with it.
func scanFiles(ctx context.Context, files []FileRef, open opener) ([]variance.MetricRow, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		rows     []variance.MetricRow
		firstErr error
	)
	sem := make(chan struct{}, scanWorkers)

	for _, ref := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(ref FileRef) {
			defer wg.Done()
			defer func() { <-sem }()

			fileRows, err := readFile(ctx, ref, open)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			rows = append(rows, fileRows...)
		}(ref)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return rows, nil
}

func readFile(ctx context.Context, ref FileRef, open opener) ([]variance.MetricRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, size, err := open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return readRows(r, size, ref)
}

// ColumnChunkMeta is the per-row-group, per-column metadata recorded by
// the catalog for file pruning.
type ColumnChunkMeta struct {
	RowGroup     int
	ColumnName   string
	PhysicalType string
	LogicalType  string
	NumValues    int64
	Compression  string
	StatsMin     string
	StatsMax     string
}

// ReadColumnMeta extracts row-group and column-chunk metadata from a
// parquet file without decoding any rows.
func ReadColumnMeta(r io.ReaderAt, size int64) ([]ColumnChunkMeta, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	logical := logicalTypes(pf.Schema())

	var out []ColumnChunkMeta
	meta := pf.Metadata()
	for rg, rowGroup := range meta.RowGroups {
		for _, col := range rowGroup.Columns {
			md := col.MetaData
			name := columnName(md.PathInSchema)
			out = append(out, ColumnChunkMeta{
				RowGroup:     rg,
				ColumnName:   name,
				PhysicalType: md.Type.String(),
				LogicalType:  logical[name],
				NumValues:    md.NumValues,
				Compression:  md.Codec.String(),
				StatsMin:     statString(md.Type, statBytes(md.Statistics.MinValue, md.Statistics.Min)),
				StatsMax:     statString(md.Type, statBytes(md.Statistics.MaxValue, md.Statistics.Max)),
			})
		}
	}
	return out, nil
}

func logicalTypes(schema *parquet.Schema) map[string]string {
	types := make(map[string]string)
	for _, field := range schema.Fields() {
		types[field.Name()] = field.Type().String()
	}
	return types
}

func columnName(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// statBytes prefers the newer min_value/max_value statistics over the
// deprecated min/max pair.
func statBytes(preferred, fallback []byte) []byte {
	if len(preferred) > 0 {
		return preferred
	}
	return fallback
}

// statString renders raw statistics bytes per the column's physical
// type, matching how the values would print in SQL.
func statString(t format.Type, b []byte) string {
	if len(b) == 0 {
		return ""
	}
	switch t {
	case format.Double:
		if len(b) < 8 {
			return ""
		}
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)), 'f', -1, 64)
	case format.Float:
		if len(b) < 4 {
			return ""
		}
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 'f', -1, 32)
	case format.Int64:
		if len(b) < 8 {
			return ""
		}
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(b)), 10)
	case format.Int32:
		if len(b) < 4 {
			return ""
		}
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(b))), 10)
	default:
		return string(b)
	}
}
