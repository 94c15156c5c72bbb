package variance

import (
	"math"
	"testing"
)

func flaggedRow(group, model string, baseRaw, deltaRaw, baseCPU, deltaCPU float64) FlaggedRow {
	pctCPU := math.NaN()
	if baseCPU != 0 {
		pctCPU = deltaCPU / baseCPU
	}
	pctRaw := math.NaN()
	if baseRaw != 0 {
		pctRaw = deltaRaw / baseRaw
	}
	return FlaggedRow{
		JoinedRow: JoinedRow{
			GroupKey: GroupKey{Region: "APAC", ParameterGroup: group, InstanceName: "i1", ModelName: model},
			Base:     Totals{RawHours: baseRaw, CPUHours: baseCPU},
			DeltaRaw: deltaRaw,
			DeltaCPU: deltaCPU,
			PctRaw:   pctRaw,
			PctCPU:   pctCPU,
			PctSec:   math.NaN(),
		},
		AnyFlag: true,
	}
}

func TestTopGroupsWeightedNotMeanOfPercentages(t *testing.T) {
	// Group A: rows with very uneven base volumes.
	//   row1: base 1000, delta 100  (+10%)
	//   row2: base 10,   delta 10   (+100%)
	// Weighted: (100+10)/(1000+10)*100 = 10.891...
	// Mean of percentages would be (10+100)/2 = 55; the weighted
	// figure must not be that.
	flagged := []FlaggedRow{
		flaggedRow("A", "m1", 1000, 100, 0, 0),
		flaggedRow("A", "m2", 10, 10, 0, 0),
	}

	groups := TopGroups(flagged, 5)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}

	want := 110.0 / 1010.0 * 100
	got := groups[0].WeightedPctRaw
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("weighted_pct_raw = %v, want %v", got, want)
	}
	if math.Abs(got-55.0) < 1 {
		t.Error("weighted percentage must differ from the mean of per-row percentages")
	}
}

func TestTopGroupsHandComputed(t *testing.T) {
	// Two groups, two rows each.
	flagged := []FlaggedRow{
		flaggedRow("A", "m1", 100, 30, 50, 5),
		flaggedRow("A", "m2", 100, 10, 50, 5),
		flaggedRow("B", "m1", 200, -40, 100, 0),
		flaggedRow("B", "m2", 200, -40, 100, 0),
	}

	groups := TopGroups(flagged, 5)
	byName := make(map[string]GroupSummary)
	for _, g := range groups {
		byName[g.ParameterGroup] = g
	}

	// A: raw (30+10)/(100+100)*100 = 20; cpu (5+5)/(50+50)*100 = 10.
	a := byName["A"]
	if math.Abs(a.WeightedPctRaw-20) > 1e-9 || math.Abs(a.WeightedPctCPU-10) > 1e-9 {
		t.Errorf("group A = %+v, want raw 20 cpu 10", a)
	}
	// B: raw -80/400*100 = -20; cpu 0.
	b := byName["B"]
	if math.Abs(b.WeightedPctRaw+20) > 1e-9 || b.WeightedPctCPU != 0 {
		t.Errorf("group B = %+v, want raw -20 cpu 0", b)
	}

	// A total |20|+|10|+0(NaN sec) = 30 outranks B 20.
	if groups[0].ParameterGroup != "A" {
		t.Errorf("ranking = %s first, want A", groups[0].ParameterGroup)
	}
}

func TestTopGroupsZeroBaseSumIsNaN(t *testing.T) {
	flagged := []FlaggedRow{
		flaggedRow("A", "m1", 0, 15, 0, 0),
	}

	g := TopGroups(flagged, 5)[0]
	if !math.IsNaN(g.WeightedPctRaw) {
		t.Errorf("weighted pct with zero base sum = %v, want NaN", g.WeightedPctRaw)
	}
	if g.TotalWeightedAbs != 0 {
		t.Errorf("NaN components must not contribute to ranking total, got %v", g.TotalWeightedAbs)
	}
}

func TestTopGroupsRankingStableOnTies(t *testing.T) {
	// Two groups with identical totals; input order must be preserved.
	flagged := []FlaggedRow{
		flaggedRow("zeta", "m1", 100, 30, 0, 0),
		flaggedRow("alpha", "m1", 100, 30, 0, 0),
	}

	groups := TopGroups(flagged, 5)
	if groups[0].ParameterGroup != "zeta" || groups[1].ParameterGroup != "alpha" {
		t.Errorf("tie order = %s, %s; want input order zeta, alpha",
			groups[0].ParameterGroup, groups[1].ParameterGroup)
	}
}

func TestTopGroupsTruncates(t *testing.T) {
	var flagged []FlaggedRow
	for _, g := range []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7"} {
		flagged = append(flagged, flaggedRow(g, "m1", 100, 30, 0, 0))
	}

	groups := TopGroups(flagged, 5)
	if len(groups) != 5 {
		t.Errorf("expected top-5 truncation, got %d", len(groups))
	}
}

func TestTopModelsMeanAndSum(t *testing.T) {
	flagged := []FlaggedRow{
		flaggedRow("A", "m1", 0, 0, 100, 20),  // |pct_cpu| 0.20
		flaggedRow("A", "m1", 0, 0, 100, -60), // |pct_cpu| 0.60
		flaggedRow("A", "m2", 0, 0, 100, 10),  // |pct_cpu| 0.10
	}

	models := TopModels(flagged, 5)
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}

	m1 := models[0]
	if m1.ModelName != "m1" {
		t.Fatalf("first model = %s, want m1 (higher mean)", m1.ModelName)
	}
	if math.Abs(m1.MeanAbsPctCPU-0.40) > 1e-9 {
		t.Errorf("m1 mean |pct_cpu| = %v, want 0.40", m1.MeanAbsPctCPU)
	}
	if m1.SumAbsDeltaCPU != 80 {
		t.Errorf("m1 sum |delta_cpu| = %v, want 80", m1.SumAbsDeltaCPU)
	}
}

func TestTopModelsUndefinedPctExcludedFromMean(t *testing.T) {
	flagged := []FlaggedRow{
		flaggedRow("A", "m1", 0, 0, 0, 30),   // pct undefined
		flaggedRow("A", "m1", 0, 0, 100, 50), // |pct_cpu| 0.50
	}

	m := TopModels(flagged, 5)[0]
	if math.Abs(m.MeanAbsPctCPU-0.50) > 1e-9 {
		t.Errorf("mean = %v, want 0.50 (NaN row excluded)", m.MeanAbsPctCPU)
	}
	if m.SumAbsDeltaCPU != 80 {
		t.Errorf("sum |delta_cpu| = %v, want 80 (delta still counted)", m.SumAbsDeltaCPU)
	}
}

func TestTopModelsAllUndefinedRanksLast(t *testing.T) {
	flagged := []FlaggedRow{
		flaggedRow("A", "ghost", 0, 0, 0, 40),
		flaggedRow("A", "real", 0, 0, 100, 10),
	}

	models := TopModels(flagged, 5)
	if models[0].ModelName != "real" {
		t.Errorf("first model = %s, want real (NaN mean ranks last)", models[0].ModelName)
	}
	if !math.IsNaN(models[1].MeanAbsPctCPU) {
		t.Errorf("ghost mean = %v, want NaN", models[1].MeanAbsPctCPU)
	}
}

func TestRollupsEmptyFlaggedSet(t *testing.T) {
	if got := TopGroups(nil, 5); len(got) != 0 {
		t.Errorf("TopGroups(nil) = %d entries, want 0", len(got))
	}
	if got := TopModels(nil, 5); len(got) != 0 {
		t.Errorf("TopModels(nil) = %d entries, want 0", len(got))
	}
}
