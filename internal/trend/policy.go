package trend

import (
	"fmt"
	"math"
	"time"
)

// Policy controls history selection and recency weighting for an
// aggregation run. Policies are immutable value types passed explicitly
// into Aggregate; behavior is fully determined by the arguments, never by
// ambient configuration.
type Policy struct {
	// Lookback selects history deterministically: the N most recent
	// historical exams by effective date (administered date when known,
	// analysis time otherwise; ties broken by exam ID). Zero means all
	// history.
	Lookback int `yaml:"lookback"`

	// HalfLifeDays is the exponential decay half-life for recency
	// weighting. An exam this many days old counts half as much as one
	// from today.
	HalfLifeDays float64 `yaml:"half_life_days"`

	// LowConfidenceWeight is the evidence weight of a flagged
	// low-confidence classification, in (0,1]. Flagged records are
	// down-weighted, never excluded.
	LowConfidenceWeight float64 `yaml:"low_confidence_weight"`

	// AsOf anchors age computation. Zero means time.Now(); tests pin it
	// for reproducible scores.
	AsOf time.Time `yaml:"-"`
}

// DefaultPolicy returns the standard weighting policy.
func DefaultPolicy() Policy {
	return Policy{
		Lookback:            10,
		HalfLifeDays:        180,
		LowConfidenceWeight: 0.5,
	}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	if p.Lookback < 0 {
		return fmt.Errorf("lookback must be >= 0, got %d", p.Lookback)
	}
	if p.HalfLifeDays <= 0 {
		return fmt.Errorf("half_life_days must be > 0, got %g", p.HalfLifeDays)
	}
	if p.LowConfidenceWeight <= 0 || p.LowConfidenceWeight > 1 {
		return fmt.Errorf("low_confidence_weight must be in (0,1], got %g", p.LowConfidenceWeight)
	}
	return nil
}

// asOf resolves the anchor time.
func (p Policy) asOf() time.Time {
	if p.AsOf.IsZero() {
		return time.Now()
	}
	return p.AsOf
}

// decay returns the recency weight for an exam of the given age:
// 0.5^(days/half-life). Strictly decreasing in age, always positive, and
// clamped to 1 for future-dated exams.
func (p Policy) decay(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	days := age.Hours() / 24
	return math.Pow(0.5, days/p.HalfLifeDays)
}
