package trend

import (
	"sort"

	"github.com/abhisek/profscope/internal/exam"
)

// Summary condenses a TopicStat set into the headline numbers shown
// alongside a study plan: totals, the dominant topics, and the split
// between lower-order (recall/comprehension) and higher-order demand.
type Summary struct {
	TotalQuestions int
	TotalTopics    int
	TopTopics      []TopicCount
	LowerOrder     int // tiers 1-2
	HigherOrder    int // tiers 3-6
}

// TopicCount pairs a topic with its occurrence count.
type TopicCount struct {
	Topic string
	Count int
}

// Summarize computes a Summary over stats. topN bounds TopTopics;
// ordering is count-descending with lexical tie-break.
func Summarize(stats map[string]*TopicStat, topN int) Summary {
	var sum Summary
	sum.TotalTopics = len(stats)

	counts := make([]TopicCount, 0, len(stats))
	for topic, stat := range stats {
		sum.TotalQuestions += stat.OccurrenceCount
		counts = append(counts, TopicCount{Topic: topic, Count: stat.OccurrenceCount})

		for tier, n := range stat.ComplexityHistogram {
			if tier <= exam.TierUnderstand {
				sum.LowerOrder += n
			} else {
				sum.HigherOrder += n
			}
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Topic < counts[j].Topic
	})

	if topN > 0 && len(counts) > topN {
		counts = counts[:topN]
	}
	sum.TopTopics = counts
	return sum
}
