package exam

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Document is the unit of input to the pipeline: one exam paper's worth
// of text plus identifying metadata. How the text got out of its source
// format (PDF, scan, export) is an upstream concern.
type Document struct {
	ExamID           string
	Title            string
	DateAdministered time.Time
	Content          string
}

// Extractor turns a document into an ordered sequence of raw question
// blocks. Implementations for rich formats (PDF and friends) live outside
// this module; the pipeline only depends on this interface.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]RawQuestion, error)
}

// questionMarker matches a leading question number like "1." or "12)".
var questionMarker = regexp.MustCompile(`(?m)^\s*\d+\s*[.)]\s+`)

// TextExtractor splits plain text into question blocks. Numbered lines
// ("1. ...", "2) ...") delimit questions when present; otherwise blocks
// are separated by blank lines.
type TextExtractor struct{}

func (TextExtractor) Extract(_ context.Context, doc Document) ([]RawQuestion, error) {
	blocks := splitNumbered(doc.Content)
	if blocks == nil {
		blocks = splitParagraphs(doc.Content)
	}

	questions := make([]RawQuestion, 0, len(blocks))
	for i, text := range blocks {
		questions = append(questions, RawQuestion{
			SourceExamID: doc.ExamID,
			Ordinal:      i,
			Text:         text,
		})
	}
	return questions, nil
}

// splitNumbered splits on question-number markers. Returns nil when the
// text has fewer than two markers, signalling the paragraph fallback.
func splitNumbered(content string) []string {
	locs := questionMarker.FindAllStringIndex(content, -1)
	if len(locs) < 2 {
		return nil
	}

	var blocks []string
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := strings.TrimSpace(content[loc[1]:end])
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func splitParagraphs(content string) []string {
	var blocks []string
	for _, part := range strings.Split(content, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			blocks = append(blocks, part)
		}
	}
	return blocks
}
