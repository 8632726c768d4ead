package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when the declared filename does not
	// carry a .csv or .json extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge is returned when the upload exceeds Limits.MaxBytes.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrRowLimitExceeded is returned when a parse produces more rows than
	// Limits.MaxRows. The whole parse is rejected; partial results are
	// discarded rather than silently truncated.
	ErrRowLimitExceeded = errors.New("row limit exceeded")

	// ErrEmptyDataset is returned when a parse completes but yields no
	// records or no columns.
	ErrEmptyDataset = errors.New("dataset has no rows or columns")
)

// ParseError wraps a CSV/JSON syntax error with enough context to report
// which format and, for line-oriented input, which line failed.
type ParseError struct {
	Format Format
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
