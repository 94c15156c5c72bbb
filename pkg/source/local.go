package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// Local reads a partitioned dataset from a filesystem root.
type Local struct {
	root string
}

// NewLocal creates a filesystem-backed source rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// List walks the root and returns the parquet files whose
// partition-encoded region and date match the request. A root with no
// parquet files at all is variance.ErrSourceUnavailable; a root that
// has files but none matching the request yields an empty slice, so
// the caller sees an empty scan rather than an error.
func (l *Local) List(ctx context.Context, req variance.ScanRequest) ([]FileRef, error) {
	var files []FileRef
	sawParquet := false

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !IsParquet(path) {
			return nil
		}
		sawParquet = true

		region, date, ok := ParsePartition(filepath.ToSlash(path))
		if !ok || !matchesRequest(region, date, req) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileRef{
			Path:    path,
			Size:    info.Size(),
			Region:  region,
			EODDate: date,
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, variance.ErrSourceUnavailable
		}
		return nil, err
	}

	if !sawParquet {
		return nil, variance.ErrSourceUnavailable
	}
	return files, nil
}

// Scan reads every matching file into MetricRows.
func (l *Local) Scan(ctx context.Context, req variance.ScanRequest) ([]variance.MetricRow, error) {
	files, err := l.List(ctx, req)
	if err != nil {
		return nil, err
	}
	return scanFiles(ctx, files, openLocal)
}

func openLocal(_ context.Context, ref FileRef) (ReaderAtCloser, int64, error) {
	f, err := os.Open(ref.Path)
	if err != nil {
		return nil, 0, err
	}
	return f, ref.Size, nil
}
