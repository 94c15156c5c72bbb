package variance

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSourceUnavailable means the root location yielded zero files for
// the requested partition filter. Distinct from a scan that matched
// files but produced zero rows, which is a valid empty result.
var ErrSourceUnavailable = errors.New("source unavailable: no files matched root and partition filter")

// SchemaError reports required columns missing from the source files.
// Fatal: the run aborts rather than proceeding with partial columns.
type SchemaError struct {
	File    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: missing columns %s", e.File, strings.Join(e.Missing, ", "))
}

// ConfigError reports an invalid analysis configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}
