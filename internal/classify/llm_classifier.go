package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"github.com/google/uuid"

	"github.com/abhisek/profscope/internal/exam"
	"github.com/abhisek/profscope/internal/llm"
)

// LLMClassifier tags questions by calling a model provider with a
// structured-output schema and verifying the answer against the closed
// tier set (and topic vocabulary, when configured).
type LLMClassifier struct {
	provider llm.Provider
	cfg      Config
	topicSet map[string]bool
}

// NewLLMClassifier creates a model-backed classifier.
func NewLLMClassifier(provider llm.Provider, cfg Config) *LLMClassifier {
	var topicSet map[string]bool
	if len(cfg.Topics) > 0 {
		topicSet = make(map[string]bool, len(cfg.Topics))
		for _, t := range cfg.Topics {
			topicSet[CanonicalTopic(t)] = true
		}
	}
	return &LLMClassifier{provider: provider, cfg: cfg, topicSet: topicSet}
}

// tagOutput is the raw model response.
type tagOutput struct {
	Topic          string  `json:"topic"`
	ComplexityTier int     `json:"complexity_tier"`
	Confidence     float64 `json:"confidence"`
}

// Classify tags one question. Timeouts are reported as
// ClassificationError{KindTimeout} and never retried here — retry policy
// belongs to the caller.
func (c *LLMClassifier) Classify(ctx context.Context, q exam.RawQuestion) (exam.ClassifiedQuestion, error) {
	ctx = llm.WithPurpose(ctx, "classify-question")

	userMsg, err := buildTagMessage(q, c.cfg.Topics)
	if err != nil {
		return exam.ClassifiedQuestion{}, fmt.Errorf("build classification prompt: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System: tagSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      TagSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return exam.ClassifiedQuestion{}, c.wrapErr(q, err)
	}

	var raw tagOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return exam.ClassifiedQuestion{}, c.malformed(q, fmt.Errorf("parse response: %w", err))
	}

	tier := exam.Tier(raw.ComplexityTier)
	if !tier.Valid() {
		return exam.ClassifiedQuestion{}, c.malformed(q,
			fmt.Errorf("complexity tier %d outside %d..%d", raw.ComplexityTier, exam.MinTier, exam.MaxTier))
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return exam.ClassifiedQuestion{}, c.malformed(q,
			fmt.Errorf("confidence %g outside [0,1]", raw.Confidence))
	}

	topic := CanonicalTopic(raw.Topic)
	if topic == "" {
		return exam.ClassifiedQuestion{}, c.malformed(q, errors.New("empty topic"))
	}
	if c.topicSet != nil && !c.topicSet[topic] {
		return exam.ClassifiedQuestion{}, c.malformed(q,
			fmt.Errorf("topic %q not in the configured vocabulary", topic))
	}

	return exam.ClassifiedQuestion{
		Raw:           q,
		Topic:         topic,
		Tier:          tier,
		Confidence:    raw.Confidence,
		LowConfidence: raw.Confidence < c.cfg.threshold(),
		RevisionID:    uuid.NewString(),
	}, nil
}

func (c *LLMClassifier) wrapErr(q exam.RawQuestion, err error) error {
	kind := KindUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		return err
	default:
		var inv *llm.ErrInvalidResponse
		if errors.As(err, &inv) {
			kind = KindMalformedResponse
		}
	}
	return &ClassificationError{Kind: kind, ExamID: q.SourceExamID, Ordinal: q.Ordinal, Err: err}
}

func (c *LLMClassifier) malformed(q exam.RawQuestion, err error) error {
	return &ClassificationError{
		Kind:    KindMalformedResponse,
		ExamID:  q.SourceExamID,
		Ordinal: q.Ordinal,
		Err:     err,
	}
}

const tagSystemPrompt = `You are an expert at classifying educational assessment questions. For every exam question provided, assign a subject-matter topic and a cognitive-complexity tier on the Bloom scale (1=Remember, 2=Understand, 3=Apply, 4=Analyze, 5=Evaluate, 6=Create).

Instructions:
- Tag the question. Do NOT answer it.
- Prefer an established topic name over a novel phrasing.
- When a topic list is provided, you MUST pick from it.
- Report confidence (0.0-1.0) in your tags.`

var tagUserTemplate = template.Must(template.New("tags").Parse(`Question:
{{.Text}}
{{if .Topics}}
Allowed topics:
{{range .Topics}}- {{.}}
{{end}}{{end}}`))

func buildTagMessage(q exam.RawQuestion, topics []string) (string, error) {
	var buf bytes.Buffer
	err := tagUserTemplate.Execute(&buf, struct {
		Text   string
		Topics []string
	}{Text: q.Text, Topics: topics})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
