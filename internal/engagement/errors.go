package engagement

import "errors"

// Sentinel errors for the engagement layer.
var (
	// ErrNotFound is returned by a Repository when no record exists for an
	// endpoint. The service treats it as an empty record.
	ErrNotFound = errors.New("endpoint not found")

	// ErrUnavailable wraps transport and auth failures talking to the store.
	ErrUnavailable = errors.New("endpoint store unavailable")

	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
)
