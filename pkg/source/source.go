// Package source resolves a partitioned batch-metrics location into
// MetricRow slices for the variance pipeline.
//
// Datasets use a Hive-style layout; the partition path is authoritative
// for region and snapshot date, regardless of in-file columns:
//
//	<root>/region=<REGION>/eod_date=<YYYY-MM-DD>/part-0001.parquet
//
// Two backends are provided: Local walks a filesystem root, S3 lists an
// object-store prefix through minio. Both validate the in-file schema
// once at this boundary and may read files concurrently; callers always
// see a fully materialized row slice.
package source

import (
	"context"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// RequiredColumns are the in-file columns every batch-metrics file must
// carry. Region and eod_date are partition-derived and deliberately not
// in this list.
var RequiredColumns = []string{
	"parameter_group",
	"instance_name",
	"model_name",
	"calc_node_raw_hours",
	"model_cpu_hours",
	"security_count_thousands",
}

// FileRef is one partition-matched data file.
type FileRef struct {
	Path    string
	Size    int64
	Region  string
	EODDate string
}

// Source lists and scans partition-filtered data files.
//
// List returns the matching files; both backends return
// variance.ErrSourceUnavailable when nothing under the root matches the
// filter. Scan decodes the matching files into rows; matching files
// that happen to hold zero rows produce a valid empty slice.
type Source interface {
	variance.Source

	List(ctx context.Context, req variance.ScanRequest) ([]FileRef, error)
}

// scanWorkers bounds concurrent file reads during Scan.
const scanWorkers = 4

func matchesRequest(region, date string, req variance.ScanRequest) bool {
	if req.Region != "" && region != req.Region {
		return false
	}
	if len(req.Dates) == 0 {
		return true
	}
	for _, d := range req.Dates {
		if date == d {
			return true
		}
	}
	return false
}
