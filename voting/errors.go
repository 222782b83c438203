package voting

import "fmt"

// ValidationError rejects a batch before any mutation. Safe to retry after
// the client fixes its input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid vote batch: " + e.Reason
}

// StorageError aborts an in-flight batch. The idempotency key was recorded
// before processing, so a same-key retry is a no-op; a retry under a new key
// cannot double-count either, because accepted votes are already deduped.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
