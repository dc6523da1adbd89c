package trend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/abhisek/profscope/internal/exam"
)

// fakeHistory implements History over an in-memory slice, newest-first
// by effective date with exam-ID tie-break, like the real bank.
type fakeHistory struct {
	records   []*exam.Record
	snapshots []*Snapshot
	failSave  bool
}

func (f *fakeHistory) RecentExams(_ context.Context, n int) ([]*exam.Record, error) {
	sorted := make([]*exam.Record, len(f.records))
	copy(sorted, f.records)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := sorted[i].EffectiveDate(), sorted[j].EffectiveDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return sorted[i].ExamID < sorted[j].ExamID
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

func (f *fakeHistory) SaveSnapshot(_ context.Context, snap *Snapshot) error {
	if f.failSave {
		return errors.New("disk full")
	}
	f.snapshots = append(f.snapshots, snap)
	return nil
}

// examRecord builds a record with count questions per given topic at the
// given tier, all high-confidence.
func examRecord(id string, date time.Time, topicCounts map[string]int, tier exam.Tier) *exam.Record {
	rec := &exam.Record{
		ExamID:           id,
		Title:            id,
		DateAdministered: date,
		AnalyzedAt:       date,
	}
	ordinal := 0
	topics := make([]string, 0, len(topicCounts))
	for topic := range topicCounts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		for range topicCounts[topic] {
			rec.Questions = append(rec.Questions, exam.ClassifiedQuestion{
				Raw:        exam.RawQuestion{SourceExamID: id, Ordinal: ordinal, Text: "q"},
				Topic:      topic,
				Tier:       tier,
				Confidence: 0.9,
				RevisionID: fmt.Sprintf("%s-r%d", id, ordinal),
			})
			ordinal++
		}
	}
	return rec
}

func day(offset int) time.Time {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func pinnedPolicy() Policy {
	pol := DefaultPolicy()
	pol.AsOf = day(0)
	return pol
}

func TestAggregateExactCounts(t *testing.T) {
	batch := []*exam.Record{
		examRecord("e1", day(-10), map[string]int{"Kinematics": 3, "Optics": 2}, exam.TierApply),
	}

	res, err := Aggregate(context.Background(), batch, &fakeHistory{}, pinnedPolicy())
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Stats) != 2 {
		t.Fatalf("topics = %d, want 2", len(res.Stats))
	}
	kin := res.Stats["Kinematics"]
	if kin == nil || kin.OccurrenceCount != 3 {
		t.Fatalf("Kinematics stat = %+v, want count 3", kin)
	}
	if kin.ComplexityHistogram[exam.TierApply] != 3 {
		t.Errorf("histogram = %v", kin.ComplexityHistogram)
	}
	if !kin.LastSeen.Equal(day(-10)) {
		t.Errorf("LastSeen = %v", kin.LastSeen)
	}
	if !reflect.DeepEqual(kin.ExamsSeen, []string{"e1"}) {
		t.Errorf("ExamsSeen = %v", kin.ExamsSeen)
	}
	if !reflect.DeepEqual(res.ExamIDs, []string{"e1"}) {
		t.Errorf("ExamIDs = %v", res.ExamIDs)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	hist := &fakeHistory{records: []*exam.Record{
		examRecord("e1", day(-100), map[string]int{"Optics": 4}, exam.TierRemember),
		examRecord("e2", day(-30), map[string]int{"Kinematics": 5}, exam.TierApply),
	}}
	pol := pinnedPolicy()

	first, err := Aggregate(context.Background(), nil, hist, pol)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Aggregate(context.Background(), nil, hist, pol)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Stats, second.Stats) {
		t.Error("re-running aggregation over the same working set changed the stats")
	}
	if !reflect.DeepEqual(first.ExamIDs, second.ExamIDs) {
		t.Error("working set changed between identical runs")
	}
}

func TestAggregateRecencyOutranksConcentration(t *testing.T) {
	// Kinematics: 6 + 10 + 4 = 20 questions spread over three exams.
	// Statics: 20 questions all in the oldest exam. Equal totals, but
	// the spread topic carries more recent evidence and must score higher.
	batch := []*exam.Record{
		examRecord("e1", day(-150), map[string]int{"Kinematics": 6, "Statics": 20}, exam.TierApply),
		examRecord("e2", day(-90), map[string]int{"Kinematics": 10}, exam.TierApply),
		examRecord("e3", day(-10), map[string]int{"Kinematics": 4}, exam.TierApply),
	}

	res, err := Aggregate(context.Background(), batch, &fakeHistory{}, pinnedPolicy())
	if err != nil {
		t.Fatal(err)
	}

	kin, sta := res.Stats["Kinematics"], res.Stats["Statics"]
	if kin.OccurrenceCount != 20 || sta.OccurrenceCount != 20 {
		t.Fatalf("counts = %d/%d, want 20/20", kin.OccurrenceCount, sta.OccurrenceCount)
	}
	if kin.RecencyWeightedScore <= sta.RecencyWeightedScore {
		t.Errorf("spread topic score %.4f should exceed concentrated score %.4f",
			kin.RecencyWeightedScore, sta.RecencyWeightedScore)
	}
	if !reflect.DeepEqual(kin.ExamsSeen, []string{"e1", "e2", "e3"}) {
		t.Errorf("ExamsSeen = %v", kin.ExamsSeen)
	}
}

func TestAggregateBatchWinsOnCollision(t *testing.T) {
	hist := &fakeHistory{records: []*exam.Record{
		examRecord("e1", day(-5), map[string]int{"Optics": 9}, exam.TierRemember),
	}}
	batch := []*exam.Record{
		examRecord("e1", day(-5), map[string]int{"Optics": 2}, exam.TierRemember),
	}

	res, err := Aggregate(context.Background(), batch, hist, pinnedPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Stats["Optics"].OccurrenceCount; got != 2 {
		t.Errorf("count = %d, want 2 (re-analyzed batch copy supersedes stored copy)", got)
	}
}

func TestAggregateLookbackSelection(t *testing.T) {
	hist := &fakeHistory{records: []*exam.Record{
		examRecord("old", day(-300), map[string]int{"Thermo": 5}, exam.TierApply),
		examRecord("mid", day(-60), map[string]int{"Waves": 5}, exam.TierApply),
		examRecord("new", day(-5), map[string]int{"Optics": 5}, exam.TierApply),
	}}
	pol := pinnedPolicy()
	pol.Lookback = 2

	res, err := Aggregate(context.Background(), nil, hist, pol)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.ExamIDs, []string{"mid", "new"}) {
		t.Errorf("ExamIDs = %v, want the 2 most recent", res.ExamIDs)
	}
	if _, ok := res.Stats["Thermo"]; ok {
		t.Error("topic outside the lookback window leaked into the stats")
	}
}

func TestAggregateHistoryOnlyTopicIncluded(t *testing.T) {
	hist := &fakeHistory{records: []*exam.Record{
		examRecord("e0", day(-40), map[string]int{"Relativity": 3}, exam.TierAnalyze),
	}}
	batch := []*exam.Record{
		examRecord("e1", day(-1), map[string]int{"Optics": 2}, exam.TierApply),
	}

	res, err := Aggregate(context.Background(), batch, hist, pinnedPolicy())
	if err != nil {
		t.Fatal(err)
	}
	rel := res.Stats["Relativity"]
	if rel == nil || rel.OccurrenceCount != 3 {
		t.Fatalf("history-only topic missing or wrong: %+v", rel)
	}
}

func TestAggregateSkipsUnclassifiedAndSuperseded(t *testing.T) {
	rec := examRecord("e1", day(-1), map[string]int{"Optics": 2}, exam.TierApply)
	rec.Questions = append(rec.Questions,
		exam.ClassifiedQuestion{
			Raw:          exam.RawQuestion{SourceExamID: "e1", Ordinal: 2, Text: "q"},
			Unclassified: true,
			RevisionID:   "e1-r2",
		},
		exam.ClassifiedQuestion{
			Raw:          exam.RawQuestion{SourceExamID: "e1", Ordinal: 3, Text: "q"},
			Topic:        "Optics",
			Tier:         exam.TierApply,
			RevisionID:   "e1-r3",
			SupersededBy: "e1-r4",
		},
	)

	res, err := Aggregate(context.Background(), []*exam.Record{rec}, &fakeHistory{}, pinnedPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Stats["Optics"].OccurrenceCount; got != 2 {
		t.Errorf("count = %d, want 2 (unclassified and superseded excluded)", got)
	}
}

func TestAggregateZeroQuestionExamWarns(t *testing.T) {
	batch := []*exam.Record{
		{ExamID: "empty", DateAdministered: day(-1), AnalyzedAt: day(-1)},
		examRecord("e1", day(-2), map[string]int{"Optics": 1}, exam.TierApply),
	}

	res, err := Aggregate(context.Background(), batch, &fakeHistory{}, pinnedPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one for the empty exam", res.Warnings)
	}
	if !reflect.DeepEqual(res.ExamIDs, []string{"e1", "empty"}) {
		t.Errorf("ExamIDs = %v (empty exam still counts toward the working set)", res.ExamIDs)
	}
}

func TestAggregateLowConfidenceDownweighted(t *testing.T) {
	rec := examRecord("e1", day(0), map[string]int{"Optics": 1}, exam.TierApply)
	rec.Questions[0].LowConfidence = true
	rec.Questions[0].Confidence = 0.3

	pol := pinnedPolicy()
	pol.LowConfidenceWeight = 0.5

	res, err := Aggregate(context.Background(), []*exam.Record{rec}, &fakeHistory{}, pol)
	if err != nil {
		t.Fatal(err)
	}
	stat := res.Stats["Optics"]
	if stat.OccurrenceCount != 1 {
		t.Errorf("count = %d, want 1 (occurrence counts stay exact)", stat.OccurrenceCount)
	}
	if math.Abs(stat.RecencyWeightedScore-0.5) > 1e-9 {
		t.Errorf("score = %v, want 0.5 (down-weighted evidence at zero age)", stat.RecencyWeightedScore)
	}
}

func TestAggregateSavesSnapshot(t *testing.T) {
	hist := &fakeHistory{}
	batch := []*exam.Record{
		examRecord("e1", day(-1), map[string]int{"Optics": 2}, exam.TierApply),
	}

	res, err := Aggregate(context.Background(), batch, hist, pinnedPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if len(hist.snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(hist.snapshots))
	}
	snap := hist.snapshots[0]
	if !reflect.DeepEqual(snap.ExamIDs, res.ExamIDs) {
		t.Errorf("snapshot exam IDs = %v", snap.ExamIDs)
	}
	if !snap.CreatedAt.Equal(day(0)) {
		t.Errorf("CreatedAt = %v", snap.CreatedAt)
	}
}

func TestAggregateDegradedOnSnapshotFailure(t *testing.T) {
	hist := &fakeHistory{failSave: true}
	batch := []*exam.Record{
		examRecord("e1", day(-1), map[string]int{"Optics": 2}, exam.TierApply),
	}

	res, err := Aggregate(context.Background(), batch, hist, pinnedPolicy())
	if err == nil {
		t.Fatal("expected snapshot write error")
	}
	if res == nil {
		t.Fatal("degraded mode must still return the computed stats")
	}
	if res.Stats["Optics"].OccurrenceCount != 2 {
		t.Errorf("stats incomplete in degraded mode: %+v", res.Stats["Optics"])
	}
}

func TestAggregateInvalidPolicy(t *testing.T) {
	pol := pinnedPolicy()
	pol.HalfLifeDays = 0
	if _, err := Aggregate(context.Background(), nil, &fakeHistory{}, pol); err == nil {
		t.Fatal("expected policy validation error")
	}
}

func TestAggregateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Aggregate(ctx, nil, &fakeHistory{}, pinnedPolicy()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
}
