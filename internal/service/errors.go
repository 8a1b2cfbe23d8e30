package service

import "errors"

// Sentinel errors returned by the room service. Handlers map these to HTTP
// status codes; anything else is a 500.
var (
	// ErrValidation marks a request rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks a mutation the caller does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a reference to an entity that no longer exists. The
	// caller's view is stale and should be refreshed with a list fetch.
	ErrNotFound = errors.New("not found")
)
