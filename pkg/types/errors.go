package types

import (
	"errors"
	"fmt"
)

// Domain errors for validation and lookup failures
var (
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrInvalidImportance = errors.New("importance must be between 0 and 1")
	ErrMemoryNotFound    = errors.New("memory not found")
)

// IndexErrorKind enumerates the ways indexing a memory can fail.
type IndexErrorKind string

const (
	TokenizeFailure     IndexErrorKind = "tokenize_failure"
	IndexWriteFailure   IndexErrorKind = "index_write_failure"
	VectorFailure       IndexErrorKind = "vector_failure"
	StorageWriteFailure IndexErrorKind = "storage_write_failure"
)

// IndexError carries a typed indexing failure. Indexing errors are reported
// to the caller as values, and the caller decides to log-and-continue: a
// memory must stay retrievable even when its index failed to build.
type IndexError struct {
	Kind     IndexErrorKind
	MemoryID string
	Err      error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("indexing memory %s: %s: %v", e.MemoryID, e.Kind, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// NewIndexError wraps err with its failure kind and the affected memory id.
func NewIndexError(kind IndexErrorKind, memoryID string, err error) *IndexError {
	return &IndexError{Kind: kind, MemoryID: memoryID, Err: err}
}
