package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/abhisek/profscope/internal/exam"
	"github.com/abhisek/profscope/internal/llm"
	"github.com/abhisek/profscope/internal/trend"
)

var (
	_ Bank           = (*SQLiteBank)(nil)
	_ Bank           = (*InMemoryBank)(nil)
	_ llm.CallLogger = (*SQLiteBank)(nil)
	_ llm.CallLogger = (*InMemoryBank)(nil)
)

// InMemoryBank mirrors SQLiteBank semantics without durability. Tests
// use it for isolation; the pipeline falls back to it when no database
// is available (memory-only degraded mode).
type InMemoryBank struct {
	mu        sync.RWMutex
	exams     map[string]*exam.Record
	snapshots []*trend.Snapshot
	calls     []llm.CallEvent

	// FailWrites makes every mutation return a PersistenceError while
	// leaving state untouched, for exercising degraded-mode paths.
	FailWrites bool
}

// NewInMemoryBank creates an empty in-memory bank.
func NewInMemoryBank() *InMemoryBank {
	return &InMemoryBank{exams: make(map[string]*exam.Record)}
}

func (b *InMemoryBank) UpsertExam(_ context.Context, rec *exam.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWrites {
		return &PersistenceError{Op: "upsert exam", Err: errWritesDisabled}
	}
	b.exams[rec.ExamID] = copyRecord(rec)
	return nil
}

func (b *InMemoryBank) GetExam(_ context.Context, examID string) (*exam.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.exams[examID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (b *InMemoryBank) ListExams(_ context.Context, f Filter) ([]*exam.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var records []*exam.Record
	for _, rec := range b.exams {
		effective := rec.EffectiveDate()
		if !f.From.IsZero() && effective.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && effective.After(f.To) {
			continue
		}
		records = append(records, copyRecord(rec))
	}

	// Newest first, exam-ID tie-break: same order the SQLite bank yields.
	sort.Slice(records, func(i, j int) bool {
		di, dj := records[i].EffectiveDate(), records[j].EffectiveDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return records[i].ExamID < records[j].ExamID
	})

	if f.Limit > 0 && len(records) > f.Limit {
		records = records[:f.Limit]
	}
	return records, nil
}

func (b *InMemoryBank) RecentExams(ctx context.Context, n int) ([]*exam.Record, error) {
	return b.ListExams(ctx, Filter{Limit: n})
}

func (b *InMemoryBank) SaveSnapshot(_ context.Context, snap *trend.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWrites {
		return &PersistenceError{Op: "save snapshot", Err: errWritesDisabled}
	}
	b.snapshots = append(b.snapshots, snap)
	return nil
}

func (b *InMemoryBank) LatestSnapshot(_ context.Context) (*trend.Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.snapshots) == 0 {
		return nil, nil
	}
	return b.snapshots[len(b.snapshots)-1], nil
}

func (b *InMemoryBank) AppendLLMCall(_ context.Context, ev llm.CallEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWrites {
		return &PersistenceError{Op: "append llm call", Err: errWritesDisabled}
	}
	b.calls = append(b.calls, ev)
	return nil
}

// LLMCalls returns a copy of the recorded call events.
func (b *InMemoryBank) LLMCalls() []llm.CallEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]llm.CallEvent, len(b.calls))
	copy(out, b.calls)
	return out
}

// copyRecord clones a record so stored state can't be mutated through
// retained pointers.
func copyRecord(rec *exam.Record) *exam.Record {
	clone := *rec
	clone.Questions = make([]exam.ClassifiedQuestion, len(rec.Questions))
	copy(clone.Questions, rec.Questions)
	return &clone
}

var errWritesDisabled = &writesDisabledError{}

type writesDisabledError struct{}

func (*writesDisabledError) Error() string { return "writes disabled" }
