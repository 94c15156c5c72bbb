package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nirmalj2002/batchlens/pkg/source"
)

// File is one data file discovered in the lake.
type File struct {
	Path    string
	Size    int64
	Region  string
	EODDate string
}

// Lake is the discovery contract for a collection of partitioned
// tables laid out as <root>/<table>/region=<R>/eod_date=<D>/*.parquet.
type Lake interface {
	// Tables lists the table directories under the root, sorted.
	Tables(ctx context.Context) ([]string, error)

	// Dates lists the distinct partition dates present for a table,
	// sorted ascending.
	Dates(ctx context.Context, table string) ([]string, error)

	// Files lists the data files for one table and date.
	Files(ctx context.Context, table, date string) ([]File, error)

	// Open returns a ranged reader over one data file.
	Open(ctx context.Context, path string) (source.ReaderAtCloser, int64, error)
}

// LocalLake discovers tables under a filesystem root.
type LocalLake struct {
	root string
}

// NewLocalLake creates a filesystem-backed lake rooted at root.
func NewLocalLake(root string) *LocalLake {
	return &LocalLake{root: root}
}

func (l *LocalLake) Tables(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read lake root: %w", err)
	}

	var tables []string
	for _, e := range entries {
		if e.IsDir() {
			tables = append(tables, e.Name())
		}
	}
	sort.Strings(tables)
	return tables, nil
}

func (l *LocalLake) Dates(ctx context.Context, table string) ([]string, error) {
	seen := make(map[string]struct{})
	err := l.walkTable(ctx, table, func(f File) {
		seen[f.EODDate] = struct{}{}
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

func (l *LocalLake) Files(ctx context.Context, table, date string) ([]File, error) {
	var files []File
	err := l.walkTable(ctx, table, func(f File) {
		if f.EODDate == date {
			files = append(files, f)
		}
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (l *LocalLake) Open(ctx context.Context, path string) (source.ReaderAtCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func (l *LocalLake) walkTable(ctx context.Context, table string, visit func(File)) error {
	root := filepath.Join(l.root, table)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !source.IsParquet(path) {
			return nil
		}
		region, date, ok := source.ParsePartition(filepath.ToSlash(path))
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		visit(File{Path: path, Size: info.Size(), Region: region, EODDate: date})
		return nil
	})
}

// S3Lake discovers tables under an object-store prefix.
type S3Lake struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Lake creates an object-store lake under cfg's bucket and prefix.
func NewS3Lake(cfg source.S3Config) (*S3Lake, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	return &S3Lake{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

func (l *S3Lake) Tables(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: l.prefix + "/", Recursive: false}

	seen := make(map[string]struct{})
	for obj := range l.client.ListObjects(ctx, l.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list tables: %w", obj.Err)
		}
		// Non-recursive listings surface sub-prefixes with a trailing
		// slash; those are the table directories.
		name := strings.TrimPrefix(obj.Key, l.prefix+"/")
		name = strings.TrimSuffix(name, "/")
		if name != "" && strings.HasSuffix(obj.Key, "/") {
			seen[name] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func (l *S3Lake) Dates(ctx context.Context, table string) ([]string, error) {
	seen := make(map[string]struct{})
	err := l.listTable(ctx, table, func(f File) {
		seen[f.EODDate] = struct{}{}
	})
	if err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

func (l *S3Lake) Files(ctx context.Context, table, date string) ([]File, error) {
	var files []File
	err := l.listTable(ctx, table, func(f File) {
		if f.EODDate == date {
			files = append(files, f)
		}
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (l *S3Lake) Open(ctx context.Context, path string) (source.ReaderAtCloser, int64, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get object %s: %w", path, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("stat object %s: %w", path, err)
	}
	return obj, stat.Size, nil
}

func (l *S3Lake) listTable(ctx context.Context, table string, visit func(File)) error {
	opts := minio.ListObjectsOptions{Prefix: l.prefix + "/" + table + "/", Recursive: true}
	for obj := range l.client.ListObjects(ctx, l.bucket, opts) {
		if obj.Err != nil {
			return fmt.Errorf("list %s: %w", table, obj.Err)
		}
		if !source.IsParquet(obj.Key) {
			continue
		}
		region, date, ok := source.ParsePartition(obj.Key)
		if !ok {
			continue
		}
		visit(File{Path: obj.Key, Size: obj.Size, Region: region, EODDate: date})
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
