package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/abhisek/profscope/internal/exam"
)

// Classifier assigns a topic and complexity tier to one raw question.
// Classification is per-question independent — no cross-question state —
// so callers may reorder, batch, or parallelize freely.
type Classifier interface {
	Classify(ctx context.Context, q exam.RawQuestion) (exam.ClassifiedQuestion, error)
}

// minConfidenceThreshold is the floor for the low-confidence flag; the
// threshold is configurable upward only.
const minConfidenceThreshold = 0.5

// Config tunes classification behavior.
type Config struct {
	// ConfidenceThreshold flags classifications below it as
	// low-confidence evidence. Values under 0.5 are raised to 0.5.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// Topics is an optional closed topic vocabulary. When set, a model
	// answer outside it is a malformed response. When empty, free-form
	// labels are accepted and canonicalized.
	Topics []string `yaml:"topics"`

	// MaxTokens bounds each model response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature for the model call. Tagging wants determinism.
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns the standard classification configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: minConfidenceThreshold,
		MaxTokens:           256,
		Temperature:         0,
	}
}

func (c Config) threshold() float64 {
	if c.ConfidenceThreshold < minConfidenceThreshold {
		return minConfidenceThreshold
	}
	return c.ConfidenceThreshold
}

// CanonicalTopic normalizes a free-form topic label into a stable
// aggregation key: trimmed, inner whitespace collapsed, words
// title-cased ("  linear   algebra " → "Linear Algebra").
func CanonicalTopic(topic string) string {
	words := strings.Fields(topic)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
