package trend

import (
	"time"

	"github.com/abhisek/profscope/internal/exam"
)

// TopicStat is the derived cross-exam statistic for one topic. It is a
// pure function of the working set and the policy, recomputed on every
// aggregation run and never independently mutated.
type TopicStat struct {
	Topic string `json:"topic"`

	// OccurrenceCount is the exact number of active classified questions
	// with this topic across ExamsSeen.
	OccurrenceCount int `json:"occurrence_count"`

	// ComplexityHistogram counts questions per tier.
	ComplexityHistogram map[exam.Tier]int `json:"complexity_histogram"`

	// ExamsSeen lists the exams this topic appeared in, sorted.
	ExamsSeen []string `json:"exams_seen"`

	// LastSeen is the effective date of the most recent exam featuring
	// this topic.
	LastSeen time.Time `json:"last_seen"`

	// RecencyWeightedScore combines frequency with exponential recency
	// decay. Non-negative; strictly increasing in occurrences at fixed
	// recency and in recency at fixed occurrences.
	RecencyWeightedScore float64 `json:"recency_weighted_score"`
}

// LowOrderFraction returns the share of this topic's questions at tiers
// strictly below floor. Zero total yields 0.
func (s *TopicStat) LowOrderFraction(floor exam.Tier) float64 {
	total := 0
	low := 0
	for tier, n := range s.ComplexityHistogram {
		total += n
		if tier < floor {
			low += n
		}
	}
	if total == 0 {
		return 0
	}
	return float64(low) / float64(total)
}

// Snapshot is a persisted TopicStat set tagged with the exam IDs it was
// computed from and the time of the run.
type Snapshot struct {
	CreatedAt time.Time             `json:"created_at"`
	ExamIDs   []string              `json:"exam_ids"`
	Stats     map[string]*TopicStat `json:"stats"`
}
