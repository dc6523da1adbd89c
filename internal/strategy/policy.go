package strategy

import (
	"fmt"
	"time"

	"github.com/abhisek/profscope/internal/exam"
)

// Policy controls bucketing thresholds. Like the weighting policy, it is
// an immutable value passed explicitly into Recommend so identical
// inputs always produce the identical plan.
type Policy struct {
	// HitFraction is the top share of topics (by recency-weighted score)
	// eligible for the hit list. Default 0.20.
	HitFraction float64 `yaml:"hit_fraction"`

	// DropFraction is the bottom share of topics eligible for the drop
	// list. Default 0.20.
	DropFraction float64 `yaml:"drop_fraction"`

	// MinOccurrences gates the hit list: a topic seen fewer times than
	// this is insufficient evidence for top billing however recent.
	// Default 2.
	MinOccurrences int `yaml:"min_occurrences"`

	// ComplexityFloor gates the drop list: only topics whose histogram
	// mass sits mostly below this tier are dropped. Default Apply (3).
	ComplexityFloor exam.Tier `yaml:"complexity_floor"`

	// AsOf stamps the plan. Zero means time.Now().
	AsOf time.Time `yaml:"-"`
}

// DefaultPolicy returns the standard bucketing policy.
func DefaultPolicy() Policy {
	return Policy{
		HitFraction:     0.20,
		DropFraction:    0.20,
		MinOccurrences:  2,
		ComplexityFloor: exam.TierApply,
	}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	if p.HitFraction < 0 || p.HitFraction > 1 {
		return fmt.Errorf("hit_fraction must be in [0,1], got %g", p.HitFraction)
	}
	if p.DropFraction < 0 || p.DropFraction > 1 {
		return fmt.Errorf("drop_fraction must be in [0,1], got %g", p.DropFraction)
	}
	if p.MinOccurrences < 0 {
		return fmt.Errorf("min_occurrences must be >= 0, got %d", p.MinOccurrences)
	}
	if !p.ComplexityFloor.Valid() {
		return fmt.Errorf("complexity_floor %d outside %d..%d", p.ComplexityFloor, exam.MinTier, exam.MaxTier)
	}
	return nil
}

func (p Policy) asOf() time.Time {
	if p.AsOf.IsZero() {
		return time.Now()
	}
	return p.AsOf
}
