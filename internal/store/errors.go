package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrJobNotFound indicates that the requested job does not exist in the store.
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// ErrInvalidState is returned when a lifecycle operation is not legal for
	// the job's current status (e.g. cancelling a completed job).
	ErrInvalidState = errors.New("operation not allowed in current job state")

	// ErrDuplicate is returned when an insert would violate the job ID
	// uniqueness constraint.
	ErrDuplicate = errors.New("entity already exists")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
