package classify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/profscope/internal/exam"
)

// BatchConfig tunes the concurrent classification of one exam's
// questions.
type BatchConfig struct {
	// Concurrency bounds in-flight model calls, respecting service rate
	// limits. Default 4.
	Concurrency int `yaml:"concurrency"`

	// CallTimeout is the deadline enforced per classification call.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// TimeoutRetries is how many times a timed-out question is retried
	// before being marked unclassified. Default 2.
	TimeoutRetries int `yaml:"timeout_retries"`

	// RetryBackoff is the base wait between timeout retries, doubled
	// per attempt.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DefaultBatchConfig returns the standard batch settings.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency:    4,
		CallTimeout:    30 * time.Second,
		TimeoutRetries: 2,
		RetryBackoff:   1 * time.Second,
	}
}

func (c BatchConfig) withDefaults() BatchConfig {
	def := DefaultBatchConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = def.CallTimeout
	}
	if c.TimeoutRetries < 0 {
		c.TimeoutRetries = def.TimeoutRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = def.RetryBackoff
	}
	return c
}

// BatchResult is the outcome of classifying one exam's questions.
type BatchResult struct {
	// Questions holds one record per surviving question, sorted by
	// ordinal. Questions that failed classification after retries are
	// present but marked Unclassified.
	Questions []exam.ClassifiedQuestion

	// Partial is set when any question was dropped (validation) or
	// marked unclassified.
	Partial bool

	// Warnings describes each question-scoped failure.
	Warnings []string
}

// ClassifyAll classifies questions concurrently. Question-scoped
// failures never abort the batch: invalid questions are dropped,
// timed-out questions are retried then marked unclassified, malformed
// responses are marked unclassified. Only context cancellation returns
// an error, and then the partial batch must not be persisted.
func ClassifyAll(ctx context.Context, c Classifier, questions []exam.RawQuestion, cfg BatchConfig) (*BatchResult, error) {
	cfg = cfg.withDefaults()

	results := make([]*exam.ClassifiedQuestion, len(questions))

	var mu sync.Mutex
	res := &BatchResult{}
	warn := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		res.Partial = true
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, q := range questions {
		// Validation failures abort the single offending question only.
		if err := q.Validate(); err != nil {
			warn("dropped question %d: %v", q.Ordinal, err)
			continue
		}

		g.Go(func() error {
			cq, err := classifyWithRetry(gctx, c, q, cfg)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				warn("question %d unclassified: %v", q.Ordinal, err)
				cq = exam.ClassifiedQuestion{
					Raw:          q,
					Unclassified: true,
					RevisionID:   uuid.NewString(),
				}
			}
			results[i] = &cq
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, cq := range results {
		if cq != nil {
			res.Questions = append(res.Questions, *cq)
		}
	}

	// Workers complete out of order; downstream wants ordinal order.
	rec := exam.Record{Questions: res.Questions}
	rec.SortQuestions()
	res.Questions = rec.Questions

	return res, nil
}

// classifyWithRetry runs one classification with a per-call deadline,
// retrying timeouts up to cfg.TimeoutRetries times with doubling
// backoff. Other failures pass through after the transport layer's own
// retries.
func classifyWithRetry(ctx context.Context, c Classifier, q exam.RawQuestion, cfg BatchConfig) (exam.ClassifiedQuestion, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.TimeoutRetries; attempt++ {
		if attempt > 0 {
			wait := cfg.RetryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return exam.ClassifiedQuestion{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		cq, err := c.Classify(callCtx, q)
		cancel()

		if err == nil {
			return cq, nil
		}
		lastErr = err

		if !IsTimeout(err) {
			return exam.ClassifiedQuestion{}, err
		}
	}

	return exam.ClassifiedQuestion{}, lastErr
}
