package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured indicates a remote provider was selected without a credential
	ErrNotConfigured = errors.New("provider not configured")

	// ErrProviderFailure indicates a remote provider returned a non-success response
	ErrProviderFailure = errors.New("provider failure")

	// ErrQuotaExceeded indicates the remote provider rejected the call for quota reasons
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrMalformedResponse indicates a success response was missing expected fields
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrSessionNotFound indicates the conversation session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
