package source

import (
	"regexp"
	"strings"
)

var (
	regionRe = regexp.MustCompile(`region=([^/\\]+)`)
	dateRe   = regexp.MustCompile(`eod_date=(\d{4}-\d{2}-\d{2})`)
)

// ParsePartition extracts the region and eod_date values encoded in a
// file path. Returns ok=false when either partition segment is absent,
// which means the file does not belong to the dataset layout.
func ParsePartition(path string) (region, date string, ok bool) {
	m := regionRe.FindStringSubmatch(path)
	if m == nil {
		return "", "", false
	}
	region = m[1]

	m = dateRe.FindStringSubmatch(path)
	if m == nil {
		return "", "", false
	}
	return region, m[1], true
}

// IsParquet reports whether path names a parquet data file.
func IsParquet(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".parquet")
}
