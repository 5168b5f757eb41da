// Package common holds sentinel errors and error types shared across
// domains.
package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("requested item not found")
	ErrConflict   = errors.New("item already exists or conflict")
	ErrBadRequest = errors.New("bad request")
)

// MalformedInputError reports a structural problem with the input file.
// It is fatal: the ingestion run aborts instead of silently truncating or
// padding rows.
type MalformedInputError struct {
	Line   int // 1-based physical line, 0 if not line-specific
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed input: %s", e.Reason)
}

// FieldParseError reports a per-field parse failure. Recovered by marking
// the affected record invalid; processing continues.
type FieldParseError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("parsing %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

// CollaboratorError wraps a failure from an external collaborator (document
// retrieval, content extraction, storage) with the collaborator's context.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
