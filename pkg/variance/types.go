package variance

import (
	"context"
	"math"
)

// MetricRow is one raw record from a partitioned batch-metrics file.
// Region and EODDate come from the partition path, not from in-file
// columns; the adapter materializes them before rows reach this package.
type MetricRow struct {
	Region         string
	EODDate        string // YYYY-MM-DD

	ParameterGroup string
	InstanceName   string
	ModelName      string

	RawHours     float64 // calc_node_raw_hours
	CPUHours     float64 // model_cpu_hours
	SecThousands float64 // security_count_thousands
}

// GroupKey is the grouping and join identity. The snapshot date is
// deliberately not part of the key: baseline and compare aggregates are
// joined across dates on everything else.
type GroupKey struct {
	Region         string
	ParameterGroup string
	InstanceName   string
	ModelName      string
}

// Totals holds the three summed metrics for one group.
type Totals struct {
	RawHours     float64
	CPUHours     float64
	SecThousands float64
}

// Snapshot is the aggregated view of one EOD date: one Totals entry per
// GroupKey.
type Snapshot struct {
	Date   string
	Groups map[GroupKey]Totals
}

// JoinedRow is the full-outer-join of a group's baseline and compare
// totals. A side the group is missing from contributes zeros. Percentage
// fields are fractional ratios (0.30 = +30%), and are NaN when the base
// is zero; they are never coerced to 0 or infinity. Scaling to
// human-readable percent happens only at the presentation boundary.
type JoinedRow struct {
	GroupKey

	Base Totals
	Comp Totals

	DeltaRaw float64
	DeltaCPU float64
	DeltaSec float64

	PctRaw float64
	PctCPU float64
	PctSec float64
}

// FlaggedRow is a JoinedRow with the per-metric variance flags applied.
type FlaggedRow struct {
	JoinedRow

	RawFlag bool
	CPUFlag bool
	SecFlag bool
	AnyFlag bool
}

// GroupSummary is the base-weighted rollup for one parameter group over
// the flagged rows. Weighted percentages are x100 quantities
// (sum of deltas over sum of bases, times 100) and NaN when the base sum
// is zero. TotalWeightedAbs is used only for ranking; NaN components
// contribute nothing to it.
type GroupSummary struct {
	ParameterGroup string

	WeightedPctRaw float64
	WeightedPctCPU float64
	WeightedPctSec float64

	TotalWeightedAbs float64
}

// ModelSummary is the per-model CPU variance rollup over the flagged
// rows. MeanAbsPctCPU is a fractional ratio; rows with an undefined CPU
// percentage are excluded from the mean.
type ModelSummary struct {
	ModelName string

	MeanAbsPctCPU  float64
	SumAbsDeltaCPU float64
}

// Outcome distinguishes the valid empty results from a normal run.
type Outcome int

const (
	// OutcomeOK means rows were found and at least one was flagged.
	OutcomeOK Outcome = iota

	// OutcomeNoSourceRows means the source yielded files but zero rows
	// for the requested dates. Not an error.
	OutcomeNoSourceRows

	// OutcomeNoneFlagged means rows were joined but none tripped a
	// threshold. Not an error; rollups are empty.
	OutcomeNoneFlagged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoSourceRows:
		return "no_source_rows"
	case OutcomeNoneFlagged:
		return "none_flagged"
	default:
		return "unknown"
	}
}

// Result is everything a run produces for the report sink.
type Result struct {
	RunID        string
	BaselineDate string
	CompareDate  string
	Region       string

	Outcome Outcome

	// Rows holds every joined row with its flag columns, flagged or
	// not, for audit output.
	Rows []FlaggedRow

	// Flagged is the subset of Rows with AnyFlag set; only these feed
	// the rollups.
	Flagged []FlaggedRow

	TopGroups []GroupSummary
	TopModels []ModelSummary
}

// Source yields metric rows for a set of partition filters. Implemented
// by pkg/source; defined here so the core depends only on the contract.
type Source interface {
	Scan(ctx context.Context, req ScanRequest) ([]MetricRow, error)
}

// ScanRequest restricts a scan to files whose partition-encoded date is
// in Dates and, when Region is non-empty, whose region matches exactly.
type ScanRequest struct {
	Dates  []string
	Region string
}

// PctDefined reports whether a percentage value carries a defined ratio
// (i.e. the base it was computed from was nonzero).
func PctDefined(pct float64) bool {
	return !math.IsNaN(pct)
}
