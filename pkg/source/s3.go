package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	Bucket string

	// Prefix under the bucket where the partitioned dataset lives,
	// e.g. "data-assist/hive_data/batch_metrics".
	Prefix string
}

// S3 reads a partitioned dataset from an S3-compatible object store.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 creates an object-store source.
func NewS3(cfg S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

// List enumerates objects under the prefix and returns the parquet
// files whose partition-encoded region and date match the request. A
// prefix with no parquet objects at all is
// variance.ErrSourceUnavailable; objects that exist but do not match
// the request yield an empty slice.
func (s *S3) List(ctx context.Context, req variance.ScanRequest) ([]FileRef, error) {
	var files []FileRef
	sawParquet := false

	opts := minio.ListObjectsOptions{Prefix: s.prefix + "/", Recursive: true}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if !IsParquet(obj.Key) {
			continue
		}
		sawParquet = true
		region, date, ok := ParsePartition(obj.Key)
		if !ok || !matchesRequest(region, date, req) {
			continue
		}
		files = append(files, FileRef{
			Path:    obj.Key,
			Size:    obj.Size,
			Region:  region,
			EODDate: date,
		})
	}

	if !sawParquet {
		return nil, variance.ErrSourceUnavailable
	}
	return files, nil
}

// Scan reads every matching object into MetricRows.
func (s *S3) Scan(ctx context.Context, req variance.ScanRequest) ([]variance.MetricRow, error) {
	files, err := s.List(ctx, req)
	if err != nil {
		return nil, err
	}
	return scanFiles(ctx, files, s.open)
}

// open returns the object as a ReaderAt; minio serves ranged reads, so
// the parquet footer can be read without downloading the whole object.
func (s *S3) open(ctx context.Context, ref FileRef) (ReaderAtCloser, int64, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get object %s: %w", ref.Path, err)
	}
	return obj, ref.Size, nil
}
