// Package memory is the durable, append-only record of every analyzed
// exam and the derived statistics, so recommendations can draw on
// history beyond the current session. Exam records are never deleted;
// re-submitting an exam ID overwrites in place.
package memory

import (
	"context"
	"time"

	"github.com/abhisek/profscope/internal/exam"
	"github.com/abhisek/profscope/internal/trend"
)

// Filter narrows ListExams. Zero values mean no constraint.
type Filter struct {
	Limit int       // max results, newest first
	From  time.Time // effective date >= From
	To    time.Time // effective date <= To
}

// Bank is the memory store. Implementations serialize writers; a reader
// never observes a partially written record.
type Bank interface {
	// UpsertExam stores an exam record, atomically and idempotently on
	// exam ID. Write failure is a *PersistenceError; in-memory state
	// stays valid so the caller may retry or continue degraded.
	UpsertExam(ctx context.Context, rec *exam.Record) error

	// GetExam fetches one exam record. Missing IDs yield ErrNotFound.
	GetExam(ctx context.Context, examID string) (*exam.Record, error)

	// ListExams returns records matching the filter, newest first by
	// effective date with exam-ID tie-break.
	ListExams(ctx context.Context, f Filter) ([]*exam.Record, error)

	// RecentExams is the aggregator's lookback read: the n most recent
	// exams, n <= 0 meaning all.
	RecentExams(ctx context.Context, n int) ([]*exam.Record, error)

	// SaveSnapshot persists a TopicStat snapshot.
	SaveSnapshot(ctx context.Context, snap *trend.Snapshot) error

	// LatestSnapshot returns the most recent snapshot, or nil when none
	// has been saved.
	LatestSnapshot(ctx context.Context) (*trend.Snapshot, error)
}

var _ trend.History = Bank(nil)
