// Package validate checks narrator output against schema and domain rules
// before any of it is applied. Failures are field-scoped and accumulate: a
// single response reports every problem at once.
package validate

import (
	"fmt"

	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
)

// Issue is one field-scoped validation finding.
type Issue struct {
	// Path locates the offending field, e.g. "roll_requests[1].kind".
	Path string
	// Code is the machine-readable error code.
	Code perrors.Code
	// Message is the human-readable explanation.
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Path, i.Message, i.Code)
}

// Result accumulates validation errors and non-fatal warnings. The zero
// value is a valid, empty result.
type Result struct {
	Errors   []Issue
	Warnings []Issue
}

// Valid reports whether the result carries no errors. Warnings never affect
// validity.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends a field-scoped error.
func (r *Result) AddError(path string, code perrors.Code, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

// AddWarning appends a field-scoped warning.
func (r *Result) AddWarning(path string, code perrors.Code, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Merge combines two results. The operation is associative and order is
// preserved; the merged result is valid exactly when both inputs are.
func (r Result) Merge(other Result) Result {
	merged := Result{}
	merged.Errors = append(merged.Errors, r.Errors...)
	merged.Errors = append(merged.Errors, other.Errors...)
	merged.Warnings = append(merged.Warnings, r.Warnings...)
	merged.Warnings = append(merged.Warnings, other.Warnings...)
	return merged
}
