// Package errors provides standardized error types for DataFrame operations.
// Every engine failure is a DataFrameError carrying the operation, the
// offending column and a Kind, so callers can match on the kind with
// errors.Is against the exported sentinels.
package errors

import (
	"fmt"
)

// Kind classifies a DataFrame failure
type Kind int

const (
	KindUnknown Kind = iota
	KindShapeMismatch
	KindSchemaMismatch
	KindMissingColumn
	KindTypeMismatch
	KindInvalidInput
	KindInternal
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindShapeMismatch:
		return "ShapeMismatch"
	case KindSchemaMismatch:
		return "SchemaMismatch"
	case KindMissingColumn:
		return "MissingColumn"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindInvalidInput:
		return "InvalidInput"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// DataFrameError represents standardized errors across all DataFrame operations
type DataFrameError struct {
	Op      string // Operation name (e.g., "Select", "Filter", "Join")
	Column  string // Column name if applicable
	Kind    Kind   // Failure class
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s operation failed on column '%s': %s", e.Kind, e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s operation failed: %s", e.Kind, e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A sentinel (no Op set) matches any error of the same Kind.
func (e *DataFrameError) Is(target error) bool {
	df, ok := target.(*DataFrameError)
	if !ok {
		return false
	}
	if df.Op == "" {
		return e.Kind == df.Kind
	}
	return e.Kind == df.Kind && e.Op == df.Op && e.Column == df.Column && e.Message == df.Message
}

// Sentinels for errors.Is matching by kind
var (
	ErrShapeMismatch  = &DataFrameError{Kind: KindShapeMismatch}
	ErrSchemaMismatch = &DataFrameError{Kind: KindSchemaMismatch}
	ErrMissingColumn  = &DataFrameError{Kind: KindMissingColumn}
	ErrTypeMismatch   = &DataFrameError{Kind: KindTypeMismatch}
	ErrInvalidInput   = &DataFrameError{Kind: KindInvalidInput}
	ErrInternal       = &DataFrameError{Kind: KindInternal}
)

// NewShapeMismatchError creates an error for columns of unequal length
func NewShapeMismatchError(op, column string, want, got int) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Kind:    KindShapeMismatch,
		Message: fmt.Sprintf("length %d does not match expected length %d", got, want),
	}
}

// NewSchemaMismatchError creates an error for incompatible table schemas
func NewSchemaMismatchError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Kind:    KindSchemaMismatch,
		Message: message,
	}
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Kind:    KindMissingColumn,
		Message: "column does not exist",
	}
}

// NewTypeMismatchError creates an error for operations on incompatible types
func NewTypeMismatchError(op, column, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Kind:    KindTypeMismatch,
		Message: message,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Kind:    KindInvalidInput,
		Message: message,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Kind:    KindInternal,
		Message: "internal error occurred",
		Cause:   cause,
	}
}
