package trend

import (
	"context"
	"fmt"
	"sort"

	"github.com/abhisek/profscope/internal/exam"
)

// History is the slice of the memory bank the aggregator needs: reading
// back recent exams and persisting the computed snapshot.
type History interface {
	// RecentExams returns stored exams newest-first by effective date
	// (ties broken by exam ID). n <= 0 means all.
	RecentExams(ctx context.Context, n int) ([]*exam.Record, error)

	// SaveSnapshot persists a TopicStat snapshot.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
}

// Result carries the output of one aggregation run.
type Result struct {
	// Stats maps topic to its derived statistic over the working set.
	Stats map[string]*TopicStat

	// ExamIDs is the sorted working set the stats were computed from.
	ExamIDs []string

	// Warnings lists non-fatal conditions, e.g. exams that contributed
	// no questions.
	Warnings []string
}

// Aggregate merges the freshly classified batch with history selected by
// the policy's lookback and computes per-topic statistics. The snapshot
// is persisted to history before returning; if that write fails the
// computed Result is still returned alongside the error so the session
// stays usable in degraded mode.
func Aggregate(ctx context.Context, batch []*exam.Record, history History, pol Policy) (*Result, error) {
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("weighting policy: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	working, err := buildWorkingSet(ctx, batch, history, pol)
	if err != nil {
		return nil, err
	}

	res := &Result{Stats: make(map[string]*TopicStat)}
	asOf := pol.asOf()

	for _, rec := range working {
		res.ExamIDs = append(res.ExamIDs, rec.ExamID)

		active := rec.Active()
		if len(active) == 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("exam %s contributed no classified questions", rec.ExamID))
			continue
		}

		effective := rec.EffectiveDate()
		weight := pol.decay(asOf.Sub(effective))

		for _, q := range active {
			stat, ok := res.Stats[q.Topic]
			if !ok {
				stat = &TopicStat{
					Topic:               q.Topic,
					ComplexityHistogram: make(map[exam.Tier]int),
				}
				res.Stats[q.Topic] = stat
			}

			stat.OccurrenceCount++
			stat.ComplexityHistogram[q.Tier]++

			evidence := 1.0
			if q.LowConfidence {
				evidence = pol.LowConfidenceWeight
			}
			stat.RecencyWeightedScore += evidence * weight

			if effective.After(stat.LastSeen) {
				stat.LastSeen = effective
			}
			stat.ExamsSeen = appendUnique(stat.ExamsSeen, rec.ExamID)
		}
	}

	sort.Strings(res.ExamIDs)
	for _, stat := range res.Stats {
		sort.Strings(stat.ExamsSeen)
	}

	snap := &Snapshot{
		CreatedAt: asOf,
		ExamIDs:   res.ExamIDs,
		Stats:     res.Stats,
	}
	if err := history.SaveSnapshot(ctx, snap); err != nil {
		// Degraded mode: the stats are valid for this session even if
		// the durable snapshot write failed.
		return res, err
	}

	return res, nil
}

// buildWorkingSet unions the batch with lookback-selected history. Batch
// records win on exam ID collision (a re-analyzed exam supersedes its
// stored copy for this run).
func buildWorkingSet(ctx context.Context, batch []*exam.Record, history History, pol Policy) ([]*exam.Record, error) {
	inBatch := make(map[string]bool, len(batch))
	working := make([]*exam.Record, 0, len(batch))
	for _, rec := range batch {
		if inBatch[rec.ExamID] {
			continue
		}
		inBatch[rec.ExamID] = true
		working = append(working, rec)
	}

	stored, err := history.RecentExams(ctx, pol.Lookback)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, rec := range stored {
		if inBatch[rec.ExamID] {
			continue
		}
		working = append(working, rec)
	}

	return working, nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
