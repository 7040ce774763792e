package storage

import "fmt"

// ValidationError reports malformed input: out-of-range confidence,
// empty text, invalid feedback value. Always returned synchronously and
// never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports an unknown id. A normal negative result, not a
// crash.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// StorageError reports a failed durable operation. It propagates to the
// caller (silent data loss would corrupt the memory's completeness
// guarantee) and the store refuses further writes until a health check
// succeeds.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
