package variance

import (
	"math"
	"sort"
)

// Join performs a full outer join of the baseline and compare snapshots
// on GroupKey. Every key present in either snapshot produces exactly one
// row; the side a key is missing from contributes zero totals.
//
// Deltas are compare minus baseline. Percentages are delta/base when the
// base is nonzero, otherwise NaN: a group that only appears in compare
// has a nonzero delta but no defined percentage.
//
// Rows come back sorted by GroupKey so downstream artifacts are
// reproducible across runs.
func Join(baseline, compare Snapshot) []JoinedRow {
	keys := make(map[GroupKey]struct{}, len(baseline.Groups)+len(compare.Groups))
	for k := range baseline.Groups {
		keys[k] = struct{}{}
	}
	for k := range compare.Groups {
		keys[k] = struct{}{}
	}

	rows := make([]JoinedRow, 0, len(keys))
	for k := range keys {
		base := baseline.Groups[k] // zero Totals when absent
		comp := compare.Groups[k]

		rows = append(rows, JoinedRow{
			GroupKey: k,
			Base:     base,
			Comp:     comp,

			DeltaRaw: comp.RawHours - base.RawHours,
			DeltaCPU: comp.CPUHours - base.CPUHours,
			DeltaSec: comp.SecThousands - base.SecThousands,

			PctRaw: pctChange(base.RawHours, comp.RawHours),
			PctCPU: pctChange(base.CPUHours, comp.CPUHours),
			PctSec: pctChange(base.SecThousands, comp.SecThousands),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return lessKey(rows[i].GroupKey, rows[j].GroupKey)
	})
	return rows
}

// pctChange returns (comp-base)/base as a fraction, or NaN when base is
// zero. Never 0, never infinity.
func pctChange(base, comp float64) float64 {
	if base == 0 {
		return math.NaN()
	}
	return (comp - base) / base
}

func lessKey(a, b GroupKey) bool {
	if a.Region != b.Region {
		return a.Region < b.Region
	}
	if a.ParameterGroup != b.ParameterGroup {
		return a.ParameterGroup < b.ParameterGroup
	}
	if a.InstanceName != b.InstanceName {
		return a.InstanceName < b.InstanceName
	}
	return a.ModelName < b.ModelName
}
