package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/abhisek/profscope/internal/exam"
	"github.com/abhisek/profscope/internal/llm"
	"github.com/abhisek/profscope/internal/trend"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLiteBank is the durable Bank backed by embedded SQLite. A single
// write mutex serializes all mutations; that is sufficient for a
// single-process deployment and keeps upserts atomic with respect to
// concurrent readers.
type SQLiteBank struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates a SQLiteBank at dsn, applying recommended pragmas and
// creating the schema when missing.
func Open(dsn string) (*SQLiteBank, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteBank{db: db}, nil
}

// DB exposes the underlying handle for raw queries (call-log listing).
func (b *SQLiteBank) DB() *sql.DB {
	return b.db
}

// Close closes the database connection.
func (b *SQLiteBank) Close() error {
	return b.db.Close()
}

// applyPragmas configures SQLite for single-user durability.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func createSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS exams (
	exam_id              TEXT PRIMARY KEY,
	title                TEXT NOT NULL DEFAULT '',
	date_administered    TEXT,
	analyzed_at          TEXT NOT NULL,
	effective_date       TEXT NOT NULL,
	partially_classified INTEGER NOT NULL DEFAULT 0,
	questions            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exams_effective ON exams(effective_date DESC, exam_id);

CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	exam_ids   TEXT NOT NULL,
	stats      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS llm_calls (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at    TEXT NOT NULL,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	purpose       TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	success       INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	request_body  TEXT NOT NULL DEFAULT '',
	response_body TEXT NOT NULL DEFAULT ''
);`
	_, err := db.Exec(schema)
	return err
}

func (b *SQLiteBank) UpsertExam(ctx context.Context, rec *exam.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return &PersistenceError{Op: "upsert exam", Err: fmt.Errorf("marshal questions: %w", err)}
	}

	var dateAdministered any
	if !rec.DateAdministered.IsZero() {
		dateAdministered = rec.DateAdministered.UTC().Format(time.RFC3339)
	}

	_, err = b.db.ExecContext(ctx, `
INSERT INTO exams (exam_id, title, date_administered, analyzed_at, effective_date, partially_classified, questions)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(exam_id) DO UPDATE SET
	title = excluded.title,
	date_administered = excluded.date_administered,
	analyzed_at = excluded.analyzed_at,
	effective_date = excluded.effective_date,
	partially_classified = excluded.partially_classified,
	questions = excluded.questions`,
		rec.ExamID,
		rec.Title,
		dateAdministered,
		rec.AnalyzedAt.UTC().Format(time.RFC3339),
		rec.EffectiveDate().UTC().Format(time.RFC3339),
		boolToInt(rec.PartiallyClassified),
		string(questions),
	)
	if err != nil {
		return &PersistenceError{Op: "upsert exam", Err: err}
	}
	return nil
}

func (b *SQLiteBank) GetExam(ctx context.Context, examID string) (*exam.Record, error) {
	row := b.db.QueryRowContext(ctx, `
SELECT exam_id, title, date_administered, analyzed_at, partially_classified, questions
FROM exams WHERE exam_id = ?`, examID)

	rec, err := scanExam(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam %s: %w", examID, err)
	}
	return rec, nil
}

func (b *SQLiteBank) ListExams(ctx context.Context, f Filter) ([]*exam.Record, error) {
	query := `
SELECT exam_id, title, date_administered, analyzed_at, partially_classified, questions
FROM exams`
	var conds []string
	var args []any
	if !f.From.IsZero() {
		conds = append(conds, "effective_date >= ?")
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		conds = append(conds, "effective_date <= ?")
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY effective_date DESC, exam_id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var records []*exam.Record
	for rows.Next() {
		rec, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("list exams: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (b *SQLiteBank) RecentExams(ctx context.Context, n int) ([]*exam.Record, error) {
	return b.ListExams(ctx, Filter{Limit: n})
}

func (b *SQLiteBank) SaveSnapshot(ctx context.Context, snap *trend.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	examIDs, err := json.Marshal(snap.ExamIDs)
	if err != nil {
		return &PersistenceError{Op: "save snapshot", Err: fmt.Errorf("marshal exam ids: %w", err)}
	}
	stats, err := json.Marshal(snap.Stats)
	if err != nil {
		return &PersistenceError{Op: "save snapshot", Err: fmt.Errorf("marshal stats: %w", err)}
	}

	_, err = b.db.ExecContext(ctx, `
INSERT INTO snapshots (created_at, exam_ids, stats) VALUES (?, ?, ?)`,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(examIDs),
		string(stats),
	)
	if err != nil {
		return &PersistenceError{Op: "save snapshot", Err: err}
	}
	return nil
}

func (b *SQLiteBank) LatestSnapshot(ctx context.Context) (*trend.Snapshot, error) {
	row := b.db.QueryRowContext(ctx, `
SELECT created_at, exam_ids, stats FROM snapshots ORDER BY id DESC LIMIT 1`)

	var createdAt, examIDs, stats string
	err := row.Scan(&createdAt, &examIDs, &stats)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	snap := &trend.Snapshot{}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("latest snapshot: parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(examIDs), &snap.ExamIDs); err != nil {
		return nil, fmt.Errorf("latest snapshot: parse exam_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(stats), &snap.Stats); err != nil {
		return nil, fmt.Errorf("latest snapshot: parse stats: %w", err)
	}
	return snap, nil
}

// AppendLLMCall records a model request in the durable call log,
// satisfying llm.CallLogger.
func (b *SQLiteBank) AppendLLMCall(ctx context.Context, ev llm.CallEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `
INSERT INTO llm_calls (created_at, provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message, request_body, response_body)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		ev.Provider,
		ev.Model,
		ev.Purpose,
		ev.InputTokens,
		ev.OutputTokens,
		ev.LatencyMs,
		boolToInt(ev.Success),
		ev.ErrorMessage,
		ev.RequestBody,
		ev.ResponseBody,
	)
	if err != nil {
		return &PersistenceError{Op: "append llm call", Err: err}
	}
	return nil
}

// CallRecord is one row of the model call log.
type CallRecord struct {
	ID        int64
	Timestamp time.Time
	llm.CallEvent
}

// ListLLMCalls returns the most recent call records, newest first.
// limit <= 0 means all.
func (b *SQLiteBank) ListLLMCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	query := `
SELECT id, created_at, provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message, request_body, response_body
FROM llm_calls ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list llm calls: %w", err)
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		var r CallRecord
		var createdAt string
		var success int
		if err := rows.Scan(&r.ID, &createdAt, &r.Provider, &r.Model, &r.Purpose,
			&r.InputTokens, &r.OutputTokens, &r.LatencyMs, &success,
			&r.ErrorMessage, &r.RequestBody, &r.ResponseBody); err != nil {
			return nil, fmt.Errorf("list llm calls: %w", err)
		}
		r.Success = success != 0
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("list llm calls: parse created_at: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetLLMCall fetches one call record by ID, or nil when absent.
func (b *SQLiteBank) GetLLMCall(ctx context.Context, id int64) (*CallRecord, error) {
	rows, err := b.db.QueryContext(ctx, `
SELECT id, created_at, provider, model, purpose, input_tokens, output_tokens, latency_ms, success, error_message, request_body, response_body
FROM llm_calls WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get llm call: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var r CallRecord
	var createdAt string
	var success int
	if err := rows.Scan(&r.ID, &createdAt, &r.Provider, &r.Model, &r.Purpose,
		&r.InputTokens, &r.OutputTokens, &r.LatencyMs, &success,
		&r.ErrorMessage, &r.RequestBody, &r.ResponseBody); err != nil {
		return nil, fmt.Errorf("get llm call: %w", err)
	}
	r.Success = success != 0
	if r.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("get llm call: parse created_at: %w", err)
	}
	return &r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (*exam.Record, error) {
	var rec exam.Record
	var dateAdministered sql.NullString
	var analyzedAt, questions string
	var partial int

	err := row.Scan(&rec.ExamID, &rec.Title, &dateAdministered, &analyzedAt, &partial, &questions)
	if err != nil {
		return nil, err
	}

	if dateAdministered.Valid {
		rec.DateAdministered, err = time.Parse(time.RFC3339, dateAdministered.String)
		if err != nil {
			return nil, fmt.Errorf("parse date_administered: %w", err)
		}
	}
	if rec.AnalyzedAt, err = time.Parse(time.RFC3339, analyzedAt); err != nil {
		return nil, fmt.Errorf("parse analyzed_at: %w", err)
	}
	rec.PartiallyClassified = partial != 0

	if err := json.Unmarshal([]byte(questions), &rec.Questions); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DefaultDBPath resolves the database file path in priority order:
// 1. PROFSCOPE_DB environment variable
// 2. $XDG_DATA_HOME/profscope/profscope.db
// 3. ~/.local/share/profscope/profscope.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PROFSCOPE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "profscope", "profscope.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
