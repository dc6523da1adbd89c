package memory

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an exam ID has no stored record.
var ErrNotFound = errors.New("exam record not found")

// PersistenceError indicates a durable write failed. The bank's
// in-memory view stays valid; callers may retry or continue in
// memory-only mode, but must be told persistence did not occur.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
