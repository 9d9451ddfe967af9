package analysis

import "errors"

// Common errors returned by analyzer implementations.
var (
	// ErrAnalysisFailed is the base error for any word analysis failure.
	ErrAnalysisFailed = errors.New("word analysis failed")

	// ErrInvalidResponse is returned when the model's response cannot be
	// parsed into the expected structure.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrRateLimited is returned when the upstream rejects the call for
	// quota or rate-limit reasons.
	ErrRateLimited = errors.New("language model rate limit exceeded")

	// ErrAuthFailure is returned when the upstream rejects the credentials.
	ErrAuthFailure = errors.New("language model authentication failed")

	// ErrUnavailable is returned when the upstream is unreachable or
	// responding with server errors.
	ErrUnavailable = errors.New("language model unavailable")

	// ErrInvalidConfig is returned when the analyzer configuration is invalid.
	ErrInvalidConfig = errors.New("invalid analyzer configuration")
)
