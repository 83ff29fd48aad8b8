package emsort

import (
	"fmt"

	"github.com/lanrat/emsort/blockstore"
)

// UsageError reports an invalid argument or configuration value.
// It is returned before any block I/O is attempted.
type UsageError struct {
	// Field is the name of the argument or configuration field that's invalid
	Field string
	// Value is the invalid value provided
	Value interface{}
	// Reason explains why the value is invalid
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage error in %s (value: %v): %s", e.Field, e.Value, e.Reason)
}

// NewUsageError creates a UsageError
func NewUsageError(field string, value interface{}, reason string) error {
	return &UsageError{Field: field, Value: value, Reason: reason}
}

// IOError is the error returned for a failed file operation. Its Kind tells
// an open failure apart from a read, write or remove failure.
type IOError = blockstore.Error

// IsOpenError reports whether err was caused by a file that could not be opened
func IsOpenError(err error) bool {
	return blockstore.IsKind(err, blockstore.KindOpen)
}

// TrialError represents a sort that failed while evaluating one arity
type TrialError struct {
	Arity int
	Err   error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("arity %d: %v", e.Arity, e.Err)
}

func (e *TrialError) Unwrap() error {
	return e.Err
}

// newStageError wraps an error with the sort stage it happened in
func newStageError(err error, stage string) error {
	return fmt.Errorf("%s: %w", stage, err)
}
