package variance

import (
	"math"
	"sort"
)

// TopGroups rolls the flagged rows up by parameter group using a
// base-weighted percentage: sum of deltas over sum of bases, x100, per
// metric. This weights each row by its base volume, unlike a mean of
// per-row percentages, so a small group with a wild swing cannot
// dominate a large stable one.
//
// Groups rank by the sum of the absolute weighted percentages,
// descending; NaN components (zero base sum) contribute nothing to the
// ranking total. Ties keep the order groups first appeared in the
// flagged input. At most n summaries are returned.
func TopGroups(flagged []FlaggedRow, n int) []GroupSummary {
	type acc struct {
		base  Totals
		delta Totals
	}

	accs := make(map[string]*acc)
	var order []string

	for _, r := range flagged {
		a, ok := accs[r.ParameterGroup]
		if !ok {
			a = &acc{}
			accs[r.ParameterGroup] = a
			order = append(order, r.ParameterGroup)
		}
		a.base.RawHours += r.Base.RawHours
		a.base.CPUHours += r.Base.CPUHours
		a.base.SecThousands += r.Base.SecThousands
		a.delta.RawHours += r.DeltaRaw
		a.delta.CPUHours += r.DeltaCPU
		a.delta.SecThousands += r.DeltaSec
	}

	summaries := make([]GroupSummary, 0, len(order))
	for _, group := range order {
		a := accs[group]
		s := GroupSummary{
			ParameterGroup: group,
			WeightedPctRaw: weightedPct(a.delta.RawHours, a.base.RawHours),
			WeightedPctCPU: weightedPct(a.delta.CPUHours, a.base.CPUHours),
			WeightedPctSec: weightedPct(a.delta.SecThousands, a.base.SecThousands),
		}
		s.TotalWeightedAbs = absSkipNaN(s.WeightedPctRaw) +
			absSkipNaN(s.WeightedPctCPU) +
			absSkipNaN(s.WeightedPctSec)
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalWeightedAbs > summaries[j].TotalWeightedAbs
	})
	return truncateGroups(summaries, n)
}

// TopModels rolls the flagged rows up by model: mean of |pct_cpu| and
// sum of |delta_cpu|, ranked by the mean descending. Rows with an
// undefined CPU percentage are excluded from the mean; a model whose
// every row is undefined ranks last with a NaN mean. Ties keep first
// appearance order. At most n summaries are returned.
func TopModels(flagged []FlaggedRow, n int) []ModelSummary {
	type acc struct {
		pctSum   float64
		pctCount int
		deltaAbs float64
	}

	accs := make(map[string]*acc)
	var order []string

	for _, r := range flagged {
		a, ok := accs[r.ModelName]
		if !ok {
			a = &acc{}
			accs[r.ModelName] = a
			order = append(order, r.ModelName)
		}
		if PctDefined(r.PctCPU) {
			a.pctSum += math.Abs(r.PctCPU)
			a.pctCount++
		}
		a.deltaAbs += math.Abs(r.DeltaCPU)
	}

	summaries := make([]ModelSummary, 0, len(order))
	for _, model := range order {
		a := accs[model]
		mean := math.NaN()
		if a.pctCount > 0 {
			mean = a.pctSum / float64(a.pctCount)
		}
		summaries = append(summaries, ModelSummary{
			ModelName:      model,
			MeanAbsPctCPU:  mean,
			SumAbsDeltaCPU: a.deltaAbs,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].MeanAbsPctCPU, summaries[j].MeanAbsPctCPU
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if math.IsNaN(a) {
			return false
		}
		return a > b
	})
	if n > 0 && len(summaries) > n {
		summaries = summaries[:n]
	}
	return summaries
}

func weightedPct(deltaSum, baseSum float64) float64 {
	if baseSum == 0 {
		return math.NaN()
	}
	return deltaSum / baseSum * 100
}

func absSkipNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Abs(v)
}

func truncateGroups(s []GroupSummary, n int) []GroupSummary {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
