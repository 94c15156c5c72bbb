package variance

import "time"

// Defaults for the threshold rules. Callers can override any of them
// per invocation; nothing in this package reads process-wide state.
const (
	DefaultPctThreshold = 0.20
	DefaultRawDelta     = 10.0
	DefaultCPUDelta     = 5.0
	DefaultSecDelta     = 10.0

	DefaultTopN = 5

	dateLayout = "2006-01-02"
)

// Thresholds holds the variance flagging rules. A metric is flagged when
// |pct| > Pct or |delta| exceeds its absolute threshold; an undefined
// percentage can only be flagged through the delta leg.
type Thresholds struct {
	Pct float64 // relative leg, fraction in (0,1]

	Raw float64 // absolute delta leg, calc_node_raw_hours
	CPU float64 // absolute delta leg, model_cpu_hours
	Sec float64 // absolute delta leg, security_count_thousands
}

// DefaultThresholds returns the documented fallback rules.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pct: DefaultPctThreshold,
		Raw: DefaultRawDelta,
		CPU: DefaultCPUDelta,
		Sec: DefaultSecDelta,
	}
}

// NaNPolicy controls how NaN metric values behave during snapshot
// aggregation.
type NaNPolicy int

const (
	// NaNZero treats NaN values as 0 for summation. This silently
	// suppresses missing data, which is why it is a policy rather than
	// hardcoded behavior.
	NaNZero NaNPolicy = iota

	// NaNPropagate lets a NaN value poison its group total, surfacing
	// data-quality problems downstream as undefined sums.
	NaNPropagate
)

// Config is the caller-supplied configuration for one analysis run.
type Config struct {
	BaselineDate string // YYYY-MM-DD
	CompareDate  string // YYYY-MM-DD
	Region       string // optional exact-match filter

	Thresholds Thresholds
	NaNPolicy  NaNPolicy

	// RequireChronological rejects runs where CompareDate precedes
	// BaselineDate. Off by default: a reversed comparison is a
	// meaningful "what changed backward" query.
	RequireChronological bool

	// TopN limits both rollups; 0 means DefaultTopN.
	TopN int
}

// Validate checks dates and thresholds. It normalizes nothing; callers
// keep what they passed in.
func (c Config) Validate() error {
	base, err := time.Parse(dateLayout, c.BaselineDate)
	if err != nil {
		return &ConfigError{Field: "baseline_date", Reason: "must be YYYY-MM-DD"}
	}
	comp, err := time.Parse(dateLayout, c.CompareDate)
	if err != nil {
		return &ConfigError{Field: "compare_date", Reason: "must be YYYY-MM-DD"}
	}
	if c.RequireChronological && comp.Before(base) {
		return &ConfigError{Field: "compare_date", Reason: "precedes baseline_date"}
	}
	if c.Thresholds.Pct <= 0 || c.Thresholds.Pct > 1 {
		return &ConfigError{Field: "pct_threshold", Reason: "must be in (0, 1]"}
	}
	if c.Thresholds.Raw < 0 || c.Thresholds.CPU < 0 || c.Thresholds.Sec < 0 {
		return &ConfigError{Field: "delta_thresholds", Reason: "must be non-negative"}
	}
	if c.TopN < 0 {
		return &ConfigError{Field: "top_n", Reason: "must be non-negative"}
	}
	return nil
}

func (c Config) topN() int {
	if c.TopN == 0 {
		return DefaultTopN
	}
	return c.TopN
}
