package exam

import (
	"sort"
	"time"
)

// Tier is the cognitive-complexity level of a question, following the
// six Bloom levels. The set is closed: values outside 1..6 are rejected
// at classification time, never accepted as new tiers.
type Tier int

const (
	TierRemember   Tier = 1
	TierUnderstand Tier = 2
	TierApply      Tier = 3
	TierAnalyze    Tier = 4
	TierEvaluate   Tier = 5
	TierCreate     Tier = 6
)

// MinTier and MaxTier bound the closed tier set.
const (
	MinTier = TierRemember
	MaxTier = TierCreate
)

var tierNames = map[Tier]string{
	TierRemember:   "Remember",
	TierUnderstand: "Understand",
	TierApply:      "Apply",
	TierAnalyze:    "Analyze",
	TierEvaluate:   "Evaluate",
	TierCreate:     "Create",
}

// Valid reports whether t is within the closed tier set.
func (t Tier) Valid() bool {
	return t >= MinTier && t <= MaxTier
}

// String returns the Bloom level name, or "Unknown" for out-of-range values.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "Unknown"
}

// RawQuestion is a single question block as produced by the extractor.
// Immutable once created.
type RawQuestion struct {
	SourceExamID string `json:"source_exam_id"`
	Ordinal      int    `json:"ordinal"`
	Text         string `json:"text"`
}

// ClassifiedQuestion pairs a RawQuestion with its topic and tier labels.
// Records are never mutated after creation; a correction appends a new
// record and sets SupersededBy on the original so the audit trail survives.
type ClassifiedQuestion struct {
	Raw        RawQuestion `json:"raw"`
	Topic      string      `json:"topic"`
	Tier       Tier        `json:"tier"`
	Confidence float64     `json:"confidence"`

	// LowConfidence marks classifications below the configured threshold.
	// Flagged records stay in the record set as lower-weight evidence.
	LowConfidence bool `json:"low_confidence,omitempty"`

	// Unclassified marks questions the classifier could not label after
	// retries. Unclassified records carry no topic and are skipped by
	// aggregation.
	Unclassified bool `json:"unclassified,omitempty"`

	// SupersededBy is the ordinal-scoped revision pointer set on a record
	// that has been corrected. Empty for live records.
	SupersededBy string `json:"superseded_by,omitempty"`

	// RevisionID identifies this record within its exam for supersede
	// pointers. Assigned at creation.
	RevisionID string `json:"revision_id,omitempty"`
}

// Record is one analyzed exam: an ordered set of classified questions
// plus identifying metadata. Owned by the memory bank once persisted.
type Record struct {
	ExamID           string               `json:"exam_id"`
	Title            string               `json:"title"`
	DateAdministered time.Time            `json:"date_administered,omitzero"`
	Questions        []ClassifiedQuestion `json:"questions"`
	AnalyzedAt       time.Time            `json:"analyzed_at"`

	// PartiallyClassified is set when one or more questions were dropped
	// (validation failure) or marked unclassified.
	PartiallyClassified bool `json:"partially_classified,omitempty"`
}

// EffectiveDate is the date used for recency weighting: the administered
// date when known, otherwise the analysis time.
func (r *Record) EffectiveDate() time.Time {
	if !r.DateAdministered.IsZero() {
		return r.DateAdministered
	}
	return r.AnalyzedAt
}

// SortQuestions orders the record's questions by ordinal. Classification
// may run concurrently and complete out of order; records are always
// re-sorted before persistence.
func (r *Record) SortQuestions() {
	sort.SliceStable(r.Questions, func(i, j int) bool {
		return r.Questions[i].Raw.Ordinal < r.Questions[j].Raw.Ordinal
	})
}

// Active returns the questions that are neither superseded nor
// unclassified — the evidence set aggregation operates on.
func (r *Record) Active() []ClassifiedQuestion {
	out := make([]ClassifiedQuestion, 0, len(r.Questions))
	for _, q := range r.Questions {
		if q.SupersededBy != "" || q.Unclassified {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Correct appends a corrected classification for the question identified
// by revisionID and marks the original as superseded. The original is
// retained for audit. Returns false if no live record matches.
func (r *Record) Correct(revisionID string, corrected ClassifiedQuestion) bool {
	for i := range r.Questions {
		q := &r.Questions[i]
		if q.RevisionID != revisionID || q.SupersededBy != "" {
			continue
		}
		q.SupersededBy = corrected.RevisionID
		r.Questions = append(r.Questions, corrected)
		r.SortQuestions()
		return true
	}
	return false
}
