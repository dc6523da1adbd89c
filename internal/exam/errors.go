package exam

import "fmt"

// ValidationError indicates a malformed RawQuestion. It aborts the single
// offending question only; the containing exam continues with the rest.
type ValidationError struct {
	ExamID  string
	Ordinal int
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid question %d in exam %s: %s", e.Ordinal, e.ExamID, e.Reason)
}
