package exam

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Validate checks a single RawQuestion before it is handed to the
// classifier. Empty or blank text and negative ordinals are rejected.
func (q RawQuestion) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return &ValidationError{ExamID: q.SourceExamID, Ordinal: q.Ordinal, Reason: "empty text"}
	}
	if !utf8.ValidString(q.Text) {
		return &ValidationError{ExamID: q.SourceExamID, Ordinal: q.Ordinal, Reason: "text is not valid UTF-8"}
	}
	if q.Ordinal < 0 {
		return &ValidationError{ExamID: q.SourceExamID, Ordinal: q.Ordinal, Reason: "negative ordinal"}
	}
	return nil
}

// ValidateSequence checks that ordinals within an exam are unique and
// contiguous from 0.
func ValidateSequence(questions []RawQuestion) error {
	ordinals := make([]int, len(questions))
	for i, q := range questions {
		ordinals[i] = q.Ordinal
	}
	sort.Ints(ordinals)
	for i, o := range ordinals {
		if o != i {
			examID := ""
			if len(questions) > 0 {
				examID = questions[0].SourceExamID
			}
			reason := "duplicate ordinal"
			if o > i {
				reason = "gap in ordinal sequence"
			}
			return &ValidationError{ExamID: examID, Ordinal: o, Reason: reason}
		}
	}
	return nil
}
