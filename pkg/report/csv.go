package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nirmalj2002/batchlens/pkg/variance"
)

// Internally percentages are fractional ratios; this boundary is where
// they become human-readable x100 values. Undefined percentages are
// written as empty cells, never as 0 or Inf.

var flaggedHeader = []string{
	"region", "parameter_group", "instance_name", "model_name",
	"base_raw_hours", "comp_raw_hours", "delta_raw_hours", "pct_raw_hours",
	"base_cpu_hours", "comp_cpu_hours", "delta_cpu_hours", "pct_cpu_hours",
	"base_sec_thousands", "comp_sec_thousands", "delta_sec_thousands", "pct_sec_thousands",
	"raw_flag", "cpu_flag", "sec_flag",
}

// WriteFlaggedCSV writes the flagged variance rows. An empty slice
// yields a header-only file.
func WriteFlaggedCSV(w io.Writer, rows []variance.FlaggedRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(flaggedHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Region, r.ParameterGroup, r.InstanceName, r.ModelName,
			formatValue(r.Base.RawHours), formatValue(r.Comp.RawHours),
			formatValue(r.DeltaRaw), formatPct(r.PctRaw),
			formatValue(r.Base.CPUHours), formatValue(r.Comp.CPUHours),
			formatValue(r.DeltaCPU), formatPct(r.PctCPU),
			formatValue(r.Base.SecThousands), formatValue(r.Comp.SecThousands),
			formatValue(r.DeltaSec), formatPct(r.PctSec),
			strconv.FormatBool(r.RawFlag), strconv.FormatBool(r.CPUFlag), strconv.FormatBool(r.SecFlag),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return nil
}

var groupHeader = []string{
	"parameter_group",
	"weighted_pct_raw_hours", "weighted_pct_cpu_hours", "weighted_pct_sec_thousands",
	"total_weighted_abs",
}

// WriteGroupSummaryCSV writes the top parameter-group rollup. Weighted
// percentages are already x100 quantities.
func WriteGroupSummaryCSV(w io.Writer, groups []variance.GroupSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(groupHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, g := range groups {
		record := []string{
			g.ParameterGroup,
			formatRounded(g.WeightedPctRaw), formatRounded(g.WeightedPctCPU), formatRounded(g.WeightedPctSec),
			formatRounded(g.TotalWeightedAbs),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return nil
}

var modelHeader = []string{
	"model_name", "mean_abs_pct_cpu_hours", "sum_abs_delta_cpu_hours",
}

// WriteModelSummaryCSV writes the top model rollup.
func WriteModelSummaryCSV(w io.Writer, models []variance.ModelSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(modelHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, m := range models {
		record := []string{
			m.ModelName,
			formatPct(m.MeanAbsPctCPU),
			formatValue(m.SumAbsDeltaCPU),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return nil
}

// formatPct scales a fractional ratio to percent, rounded to two
// decimals. NaN becomes an empty cell.
func formatPct(v float64) string {
	if !variance.PctDefined(v) {
		return ""
	}
	return strconv.FormatFloat(v*100, 'f', 2, 64)
}

// formatRounded writes an already-scaled percentage.
func formatRounded(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
