package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/lexigo/wordbook-worker/internal/domain"
	"github.com/lexigo/wordbook-worker/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	// Not found errors
	case errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Illegal lifecycle transitions
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrUnsupportedJobType),
		errors.Is(err, domain.ErrNoWords),
		errors.Is(err, domain.ErrEmptyJobID),
		errors.Is(err, domain.ErrInvalidJobStatus),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Job not found"

	case errors.Is(err, store.ErrInvalidState):
		return "Operation not allowed in the job's current state"

	case errors.Is(err, store.ErrDuplicate):
		return "Job already exists"

	case errors.Is(err, domain.ErrUnsupportedJobType):
		return "Unsupported job type"

	case errors.Is(err, domain.ErrNoWords):
		return "Job must contain at least one word"

	case errors.Is(err, domain.ErrEmptyJobID),
		errors.Is(err, domain.ErrInvalidJobStatus):
		return "Invalid job data"

	case errors.As(err, &validationErrs):
		return "Validation error"

	default:
		return "An unexpected error occurred"
	}
}
