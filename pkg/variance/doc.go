/*
Package variance compares two dated snapshots of partitioned batch
metrics and reports the significant movers.

# Pipeline

The pipeline is a pure batch computation over in-memory rows:

	scan → Aggregate (x2) → Join → Flag → TopGroups / TopModels

  - Aggregate sums the three metrics (raw node hours, model CPU hours,
    security counts in thousands) per (region, parameter group,
    instance, model) for one snapshot date.
  - Join is a full outer join of the baseline and compare aggregates;
    a group missing from one side gets zero totals there. Deltas are
    compare minus baseline; percentage changes are fractions and NaN
    when the base is zero.
  - Flag marks a row significant when any metric exceeds the relative
    percentage threshold or its absolute delta threshold.
  - TopGroups ranks parameter groups by base-weighted percentage change
    (sum of deltas over sum of bases), TopModels ranks models by mean
    absolute CPU percentage change. Both keep the top five by default.

# Units

Percentages are fractional ratios everywhere in this package; the x100
scaling for human-readable output happens in pkg/report. The one
exception is GroupSummary's weighted percentages, which are defined as
x100 quantities. An undefined ratio (zero base) is always NaN, never 0
or infinity.

# Errors and empty results

ErrSourceUnavailable and SchemaError are fatal and abort a run with no
partial result. "Zero rows for the requested dates" and "rows found but
none flagged" are not failures; they come back as Result.Outcome values
so the report sink can render a clean "no significant variance" report.

Everything here is single-threaded and synchronous: each stage takes
immutable inputs and returns fresh outputs. Only the source adapter may
parallelize internally.

# Usage

	src := source.NewLocal("/data/batch_metrics")
	result, err := variance.Run(ctx, src, variance.Config{
	    BaselineDate: "2025-10-01",
	    CompareDate:  "2025-10-08",
	    Region:       "APAC",
	    Thresholds:   variance.DefaultThresholds(),
	})
*/
package variance
