package services

import (
	"errors"
	"fmt"
)

// Service-level errors
var (
	// ErrValidation marks input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidSchoolID is a validation failure on the school identifier.
	ErrInvalidSchoolID = fmt.Errorf("%w: invalid school id", ErrValidation)
	// ErrInvalidLevel is a validation failure on a hierarchy level name.
	ErrInvalidLevel = fmt.Errorf("%w: unknown hierarchy level", ErrValidation)

	ErrProfileNotFound   = errors.New("school profile not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrCandidateNotFound = errors.New("no matching school in reference data")

	// ErrReferenceUnavailable means the reference dataset could not be
	// loaded. Profile operations are unaffected.
	ErrReferenceUnavailable = errors.New("reference data unavailable")

	// ErrPersistence is a storage failure. Nothing was written and the call
	// may be retried.
	ErrPersistence = errors.New("storage failure")
)

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
