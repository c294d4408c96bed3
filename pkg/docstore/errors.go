package docstore

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the store. Schema violations surface as
// schema.ErrSchemaMismatch and filter violations as
// filter.ErrUnsupportedFilter; both pass through wrapped in a StoreError.
var (
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrStoreInit is returned when an existing table's schema is
	// incompatible and the exists policy forbids recreating it.
	ErrStoreInit = errors.New("store initialization failed")

	// ErrDuplicateDocument is returned by WriteDocuments under
	// DuplicateFail when an identifier collides; the whole batch is
	// rolled back.
	ErrDuplicateDocument = errors.New("duplicate document id")

	// ErrIndexNotReady is returned by TextSearch when no full-text index
	// has been built on the requested field.
	ErrIndexNotReady = errors.New("text index not ready")

	// ErrEmptyQuery is returned when a search query is empty.
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidTopK is returned when topK is not positive.
	ErrInvalidTopK = errors.New("topK must be positive")
)

// StoreError wraps errors with operation context. Engine and I/O failures
// propagate through it unchanged; no retries are attempted.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("docstore: %v", e.Err)
	}
	return fmt.Sprintf("docstore: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
