package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/profscope/internal/trend"
)

// Bucket is the study-priority band of a recommendation.
type Bucket string

const (
	BucketHit  Bucket = "HIT"  // highest urgency — study these first
	BucketSafe Bucket = "SAFE" // solid middle ground
	BucketDrop Bucket = "DROP" // lowest yield, deprioritize
)

// Recommendation is one topic's entry in the study plan. Created fresh
// per Recommend call; a retained plan is a snapshot dated by
// GeneratedAt, never authoritative state.
type Recommendation struct {
	Topic             string   `json:"topic"`
	Bucket            Bucket   `json:"priority_bucket"`
	RationaleScore    float64  `json:"rationale_score"`
	SupportingExamIDs []string `json:"supporting_exam_ids"`
}

// Plan is the ordered recommendation sequence: hit list first (score
// descending), then safe zone, then drop list.
type Plan struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	Recommendations []Recommendation `json:"recommendations"`

	// InsufficientData signals that no usable topic statistics were
	// available. The empty plan is a valid result, not an error;
	// callers use the flag to render an appropriate message.
	InsufficientData bool `json:"insufficient_data,omitempty"`
}

// Recommend buckets topics deterministically. Identical stats and
// policy always yield the identical ordered sequence, tie-breaks
// included.
func Recommend(stats map[string]*trend.TopicStat, pol Policy) (*Plan, error) {
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("strategy policy: %w", err)
	}

	plan := &Plan{GeneratedAt: pol.asOf()}
	if len(stats) == 0 {
		plan.InsufficientData = true
		return plan, nil
	}

	ranked := make([]*trend.TopicStat, 0, len(stats))
	for _, stat := range stats {
		ranked = append(ranked, stat)
	}

	// Score descending; ties broken by higher occurrence count, then
	// topic lexical order.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RecencyWeightedScore != ranked[j].RecencyWeightedScore {
			return ranked[i].RecencyWeightedScore > ranked[j].RecencyWeightedScore
		}
		if ranked[i].OccurrenceCount != ranked[j].OccurrenceCount {
			return ranked[i].OccurrenceCount > ranked[j].OccurrenceCount
		}
		return ranked[i].Topic < ranked[j].Topic
	})

	n := len(ranked)
	hitN := int(math.Ceil(pol.HitFraction * float64(n)))
	dropN := int(math.Floor(pol.DropFraction * float64(n)))

	buckets := make([]Bucket, n)
	for i, stat := range ranked {
		switch {
		case i < hitN && stat.OccurrenceCount >= pol.MinOccurrences:
			buckets[i] = BucketHit
		case i >= n-dropN && stat.LowOrderFraction(pol.ComplexityFloor) > 0.5:
			buckets[i] = BucketDrop
		default:
			buckets[i] = BucketSafe
		}
	}

	// Emit hit list, then safe zone, then drop list, preserving the
	// ranked order within each band.
	for _, want := range []Bucket{BucketHit, BucketSafe, BucketDrop} {
		for i, stat := range ranked {
			if buckets[i] != want {
				continue
			}
			plan.Recommendations = append(plan.Recommendations, Recommendation{
				Topic:             stat.Topic,
				Bucket:            want,
				RationaleScore:    stat.RecencyWeightedScore,
				SupportingExamIDs: stat.ExamsSeen,
			})
		}
	}

	return plan, nil
}

// Render formats the plan as a plain-text report.
func (p *Plan) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Study plan — %s\n", p.GeneratedAt.Format("2006-01-02"))

	if p.InsufficientData {
		b.WriteString("\nNot enough analyzed exams to make recommendations yet.\n")
		b.WriteString("Analyze at least one exam and try again.\n")
		return b.String()
	}

	headers := map[Bucket]string{
		BucketHit:  "HIT LIST — study these first",
		BucketSafe: "SAFE ZONE — keep warm",
		BucketDrop: "DROP LIST — lowest yield",
	}

	for _, bucket := range []Bucket{BucketHit, BucketSafe, BucketDrop} {
		printed := false
		for _, rec := range p.Recommendations {
			if rec.Bucket != bucket {
				continue
			}
			if !printed {
				fmt.Fprintf(&b, "\n%s\n", headers[bucket])
				printed = true
			}
			fmt.Fprintf(&b, "  %-30s score %6.2f  (%d exam(s))\n",
				rec.Topic, rec.RationaleScore, len(rec.SupportingExamIDs))
		}
	}

	return b.String()
}
