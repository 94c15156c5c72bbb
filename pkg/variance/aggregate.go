package variance

import "math"

// Aggregate groups rows for one snapshot date by GroupKey and sums the
// three metrics. Rows whose EODDate differs from date are ignored, so
// the same scan can feed both the baseline and compare aggregation.
//
// The output is a map, so it is independent of input row order by
// construction.
func Aggregate(rows []MetricRow, date string, policy NaNPolicy) Snapshot {
	groups := make(map[GroupKey]Totals)

	for _, r := range rows {
		if r.EODDate != date {
			continue
		}
		key := GroupKey{
			Region:         r.Region,
			ParameterGroup: r.ParameterGroup,
			InstanceName:   r.InstanceName,
			ModelName:      r.ModelName,
		}
		t := groups[key]
		t.RawHours = addMetric(t.RawHours, r.RawHours, policy)
		t.CPUHours = addMetric(t.CPUHours, r.CPUHours, policy)
		t.SecThousands = addMetric(t.SecThousands, r.SecThousands, policy)
		groups[key] = t
	}

	return Snapshot{Date: date, Groups: groups}
}

func addMetric(sum, v float64, policy NaNPolicy) float64 {
	if math.IsNaN(v) && policy == NaNZero {
		return sum
	}
	return sum + v
}
