// Package pipeline wires the analysis stages together: extract →
// classify → persist → aggregate → recommend. Each stage's policy is
// passed explicitly; the memory bank is the only shared mutable
// resource.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/profscope/internal/classify"
	"github.com/abhisek/profscope/internal/exam"
	"github.com/abhisek/profscope/internal/memory"
	"github.com/abhisek/profscope/internal/strategy"
	"github.com/abhisek/profscope/internal/trend"
)

// Config bundles the per-stage policies for one analysis run.
type Config struct {
	Classify  classify.Config      `yaml:"classify"`
	Batch     classify.BatchConfig `yaml:"batch"`
	Weighting trend.Policy         `yaml:"weighting"`
	Strategy  strategy.Policy      `yaml:"strategy"`
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Classify:  classify.DefaultConfig(),
		Batch:     classify.DefaultBatchConfig(),
		Weighting: trend.DefaultPolicy(),
		Strategy:  strategy.DefaultPolicy(),
	}
}

// Pipeline runs analysis requests sequentially. Classification fans out
// per question; everything else is CPU-bound.
type Pipeline struct {
	extractor  exam.Extractor
	classifier classify.Classifier
	bank       memory.Bank
	cfg        Config
}

// New creates a Pipeline.
func New(extractor exam.Extractor, classifier classify.Classifier, bank memory.Bank, cfg Config) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		classifier: classifier,
		bank:       bank,
		cfg:        cfg,
	}
}

// Result is the outcome of one analysis run.
type Result struct {
	// Exams holds the records produced by this run, classification
	// order restored by ordinal.
	Exams []*exam.Record

	// Stats is the aggregation over the working set (batch + lookback
	// history).
	Stats *trend.Result

	// Plan is the ordered study recommendation.
	Plan *strategy.Plan

	// Warnings collects the run's non-fatal conditions.
	Warnings []string

	// Degraded is set when durable persistence failed somewhere along
	// the run. The stats and plan are still valid for this session.
	Degraded bool
}

// Analyze runs the full pipeline over the given documents. Failures are
// scoped: a bad question is dropped, a bad exam is skipped with a
// warning, a persistence failure degrades the run. Only cancellation
// aborts, and a cancelled exam is never persisted. When the returned
// error is a *memory.PersistenceError the Result is still populated.
func (p *Pipeline) Analyze(ctx context.Context, docs []exam.Document) (*Result, error) {
	res := &Result{}
	var persistErr error

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, warnings, err := p.analyzeOne(ctx, doc)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			var pe *memory.PersistenceError
			if errors.As(err, &pe) {
				// Keep the record for this session's aggregation even
				// though history was not durably updated.
				persistErr = err
				res.Degraded = true
				res.Warnings = append(res.Warnings, pe.Error())
			} else if ctx.Err() != nil {
				return nil, err
			} else {
				res.Warnings = append(res.Warnings, fmt.Sprintf("skipped exam %s: %v", doc.ExamID, err))
				continue
			}
		}
		res.Exams = append(res.Exams, rec)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats, err := trend.Aggregate(ctx, res.Exams, p.bank, p.cfg.Weighting)
	if err != nil {
		var pe *memory.PersistenceError
		if errors.As(err, &pe) && stats != nil {
			persistErr = err
			res.Degraded = true
			res.Warnings = append(res.Warnings, pe.Error())
		} else {
			return nil, err
		}
	}
	res.Stats = stats
	res.Warnings = append(res.Warnings, stats.Warnings...)

	plan, err := strategy.Recommend(stats.Stats, p.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	res.Plan = plan

	return res, persistErr
}

// analyzeOne extracts, classifies, and persists a single exam. The
// persist is all-or-nothing: a cancelled classification run leaves no
// trace in the bank.
func (p *Pipeline) analyzeOne(ctx context.Context, doc exam.Document) (*exam.Record, []string, error) {
	if doc.ExamID == "" {
		doc.ExamID = uuid.NewString()
	}

	raw, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}
	if err := exam.ValidateSequence(raw); err != nil {
		return nil, nil, err
	}

	var warnings []string
	rec := &exam.Record{
		ExamID:           doc.ExamID,
		Title:            doc.Title,
		DateAdministered: doc.DateAdministered,
		AnalyzedAt:       time.Now().UTC(),
	}

	if len(raw) == 0 {
		// Extraction produced nothing: recorded, contributes nothing.
		warnings = append(warnings, fmt.Sprintf("exam %s has no questions", doc.ExamID))
	} else {
		batch, err := classify.ClassifyAll(ctx, p.classifier, raw, p.cfg.Batch)
		if err != nil {
			return nil, warnings, err
		}
		rec.Questions = batch.Questions
		rec.PartiallyClassified = batch.Partial
		warnings = append(warnings, batch.Warnings...)
	}

	// Cancellation between stages: never persist a half-done exam.
	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}

	if err := p.bank.UpsertExam(ctx, rec); err != nil {
		return rec, warnings, err
	}
	return rec, warnings, nil
}

// Recommend replays aggregation and strategy over stored history alone,
// without classifying anything new.
func (p *Pipeline) Recommend(ctx context.Context) (*Result, error) {
	res := &Result{}
	var persistErr error

	stats, err := trend.Aggregate(ctx, nil, p.bank, p.cfg.Weighting)
	if err != nil {
		var pe *memory.PersistenceError
		if errors.As(err, &pe) && stats != nil {
			persistErr = err
			res.Degraded = true
			res.Warnings = append(res.Warnings, pe.Error())
		} else {
			return nil, err
		}
	}
	res.Stats = stats
	res.Warnings = append(res.Warnings, stats.Warnings...)

	plan, err := strategy.Recommend(stats.Stats, p.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	res.Plan = plan

	return res, persistErr
}
