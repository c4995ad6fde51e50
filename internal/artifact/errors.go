package artifact

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError
var ErrNotFound = errors.New("artifact not found")

// NotFoundError is returned for download ids that are unknown or not completed
type NotFoundError struct {
	DownloadID string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("download %q not found", e.DownloadID)
}

// Is makes errors.Is(err, ErrNotFound) hold
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StorageError reports a failure to write or read artifact files
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *StorageError) Unwrap() error {
	return e.Err
}
