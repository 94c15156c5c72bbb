package variance

import (
	"math"
	"sort"
	"testing"
)

func snapshot(date string, groups map[GroupKey]Totals) Snapshot {
	return Snapshot{Date: date, Groups: groups}
}

func key(group string) GroupKey {
	return GroupKey{Region: "APAC", ParameterGroup: group, InstanceName: "i1", ModelName: "m1"}
}

func TestJoinCompleteness(t *testing.T) {
	baseline := snapshot("2025-10-01", map[GroupKey]Totals{
		key("A"): {RawHours: 100},
		key("B"): {RawHours: 50},
	})
	compare := snapshot("2025-10-08", map[GroupKey]Totals{
		key("B"): {RawHours: 60},
		key("C"): {RawHours: 5},
	})

	rows := Join(baseline, compare)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (union of keys), got %d", len(rows))
	}

	seen := make(map[GroupKey]int)
	for _, r := range rows {
		seen[r.GroupKey]++
	}
	for _, g := range []string{"A", "B", "C"} {
		if seen[key(g)] != 1 {
			t.Errorf("key %s appears %d times, want exactly 1", g, seen[key(g)])
		}
	}
}

func TestJoinZeroFill(t *testing.T) {
	baseline := snapshot("2025-10-01", map[GroupKey]Totals{})
	compare := snapshot("2025-10-08", map[GroupKey]Totals{
		key("A"): {RawHours: 30, CPUHours: 4, SecThousands: 2},
	})

	rows := Join(baseline, compare)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	r := rows[0]
	if r.Base != (Totals{}) {
		t.Errorf("base = %+v, want zero totals", r.Base)
	}
	if r.DeltaRaw != 30 || r.DeltaCPU != 4 || r.DeltaSec != 2 {
		t.Errorf("deltas = %v %v %v, want compare values", r.DeltaRaw, r.DeltaCPU, r.DeltaSec)
	}
	for name, pct := range map[string]float64{"raw": r.PctRaw, "cpu": r.PctCPU, "sec": r.PctSec} {
		if !math.IsNaN(pct) {
			t.Errorf("pct_%s = %v, want NaN for zero base", name, pct)
		}
	}
}

func TestJoinUndefinedPctIsNotZeroOrInf(t *testing.T) {
	baseline := snapshot("2025-10-01", map[GroupKey]Totals{
		key("A"): {RawHours: 0},
	})
	compare := snapshot("2025-10-08", map[GroupKey]Totals{
		key("A"): {RawHours: 10},
	})

	r := Join(baseline, compare)[0]
	if r.PctRaw == 0 {
		t.Error("undefined pct must not be coerced to 0")
	}
	if math.IsInf(r.PctRaw, 0) {
		t.Error("undefined pct must not be coerced to infinity")
	}
	if !math.IsNaN(r.PctRaw) {
		t.Errorf("pct = %v, want NaN", r.PctRaw)
	}
	if r.DeltaRaw != 10 {
		t.Errorf("delta = %v, want 10 (delta stays defined)", r.DeltaRaw)
	}
}

func TestJoinPctChange(t *testing.T) {
	baseline := snapshot("2025-10-01", map[GroupKey]Totals{
		key("A"): {RawHours: 100, CPUHours: 50, SecThousands: 10},
	})
	compare := snapshot("2025-10-08", map[GroupKey]Totals{
		key("A"): {RawHours: 130, CPUHours: 50, SecThousands: 5},
	})

	r := Join(baseline, compare)[0]
	if r.PctRaw != 0.30 {
		t.Errorf("pct_raw = %v, want 0.30", r.PctRaw)
	}
	if r.PctCPU != 0 {
		t.Errorf("pct_cpu = %v, want 0", r.PctCPU)
	}
	if r.PctSec != -0.5 {
		t.Errorf("pct_sec = %v, want -0.5", r.PctSec)
	}
}

func TestJoinOutputSorted(t *testing.T) {
	baseline := snapshot("2025-10-01", map[GroupKey]Totals{
		key("C"): {RawHours: 1},
		key("A"): {RawHours: 1},
		key("B"): {RawHours: 1},
	})
	compare := snapshot("2025-10-08", map[GroupKey]Totals{})

	rows := Join(baseline, compare)
	sorted := sort.SliceIsSorted(rows, func(i, j int) bool {
		return lessKey(rows[i].GroupKey, rows[j].GroupKey)
	})
	if !sorted {
		t.Error("join output must be sorted by GroupKey")
	}
}
