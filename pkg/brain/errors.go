package brain

import "errors"

var (
	// ErrNotFound is returned by lookups of an unknown concept id.
	ErrNotFound = errors.New("concept not found")
	// ErrCapacityGrowth is returned when the index space cannot be extended.
	ErrCapacityGrowth = errors.New("capacity growth failed")
	// ErrStorageUnavailable wraps failures of the underlying database.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidConcept is returned for concepts with missing or malformed fields.
	ErrInvalidConcept = errors.New("invalid concept")
	// ErrInvalidParameter is returned for out-of-range learning or pruning parameters.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoFetcher is returned when no content fetcher is registered for a kind.
	ErrNoFetcher = errors.New("no content fetcher for kind")
	// ErrClosed is returned by operations on a closed Brain.
	ErrClosed = errors.New("brain is closed")
)

// storageErr marks err as a storage failure while keeping the original cause.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// StorageError reports a failed database operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}
