package variance

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Run executes the full variance pipeline against src: scan both
// snapshot dates, aggregate each, join, flag, and roll up.
//
// Fatal conditions (invalid config, ErrSourceUnavailable, SchemaError)
// abort with no partial result. A scan that matches files but yields
// zero rows, or rows of which none trip a threshold, are valid outcomes
// reported through Result.Outcome, not errors.
func Run(ctx context.Context, src Source, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:        uuid.NewString(),
		BaselineDate: cfg.BaselineDate,
		CompareDate:  cfg.CompareDate,
		Region:       cfg.Region,
	}

	rows, err := src.Scan(ctx, ScanRequest{
		Dates:  []string{cfg.BaselineDate, cfg.CompareDate},
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	if len(rows) == 0 {
		result.Outcome = OutcomeNoSourceRows
		return result, nil
	}

	baseline := Aggregate(rows, cfg.BaselineDate, cfg.NaNPolicy)
	compare := Aggregate(rows, cfg.CompareDate, cfg.NaNPolicy)
	joined := Join(baseline, compare)
	if len(joined) == 0 {
		result.Outcome = OutcomeNoSourceRows
		return result, nil
	}

	result.Rows = Flag(joined, cfg.Thresholds)
	result.Flagged = Flagged(result.Rows)
	if len(result.Flagged) == 0 {
		result.Outcome = OutcomeNoneFlagged
		log.Printf("variance run %s: %d groups joined, none flagged", result.RunID, len(result.Rows))
		return result, nil
	}

	n := cfg.topN()
	result.TopGroups = TopGroups(result.Flagged, n)
	result.TopModels = TopModels(result.Flagged, n)

	log.Printf("variance run %s: %d groups joined, %d flagged, %d top groups, %d top models",
		result.RunID, len(result.Rows), len(result.Flagged), len(result.TopGroups), len(result.TopModels))
	return result, nil
}
