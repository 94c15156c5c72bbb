package variance

import "math"

// Flag applies the threshold rules to every joined row. Each metric is
// flagged when its |pct| exceeds the relative threshold OR its |delta|
// exceeds the metric's absolute threshold; a NaN percentage never trips
// the relative leg. AnyFlag is the OR of the three.
//
// All rows are returned with their flag columns so unflagged rows stay
// available for audit output; use Flagged to take the significant
// subset.
func Flag(rows []JoinedRow, th Thresholds) []FlaggedRow {
	out := make([]FlaggedRow, len(rows))
	for i, r := range rows {
		f := FlaggedRow{JoinedRow: r}
		f.RawFlag = exceeds(r.PctRaw, r.DeltaRaw, th.Pct, th.Raw)
		f.CPUFlag = exceeds(r.PctCPU, r.DeltaCPU, th.Pct, th.CPU)
		f.SecFlag = exceeds(r.PctSec, r.DeltaSec, th.Pct, th.Sec)
		f.AnyFlag = f.RawFlag || f.CPUFlag || f.SecFlag
		out[i] = f
	}
	return out
}

// Flagged returns the rows with AnyFlag set, preserving input order.
func Flagged(rows []FlaggedRow) []FlaggedRow {
	var out []FlaggedRow
	for _, r := range rows {
		if r.AnyFlag {
			out = append(out, r)
		}
	}
	return out
}

func exceeds(pct, delta, pctThreshold, deltaThreshold float64) bool {
	if !math.IsNaN(pct) && math.Abs(pct) > pctThreshold {
		return true
	}
	return math.Abs(delta) > deltaThreshold
}
