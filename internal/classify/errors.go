package classify

import (
	"errors"
	"fmt"
)

// Kind distinguishes classification failure modes.
type Kind int

const (
	// KindMalformedResponse covers model output outside the recognized
	// closed sets: unknown topic, tier outside 1..6, confidence not a
	// float in [0,1].
	KindMalformedResponse Kind = iota

	// KindTimeout means the classification call exceeded its deadline.
	// The caller owns retry policy; the classifier reports and stops.
	KindTimeout

	// KindUnavailable means the model service could not be reached after
	// the transport layer's own retries.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindMalformedResponse:
		return "malformed response"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ClassificationError reports a failed classification attempt for a
// single question. It is question-scoped: the containing exam continues.
type ClassificationError struct {
	Kind    Kind
	ExamID  string
	Ordinal int
	Err     error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify question %d in exam %s: %s: %v", e.Ordinal, e.ExamID, e.Kind, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a timeout classification error.
func IsTimeout(err error) bool {
	var ce *ClassificationError
	return errors.As(err, &ce) && ce.Kind == KindTimeout
}
