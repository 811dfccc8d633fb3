package provider

import "errors"

var (
	// ErrUnknownProvider is returned for a provider name with no registered cache.
	ErrUnknownProvider = errors.New("provider: unknown provider")

	// ErrDuplicateProvider is returned when a name is registered twice.
	ErrDuplicateProvider = errors.New("provider: already registered")

	// ErrInvalidName is returned for an empty provider name.
	ErrInvalidName = errors.New("provider: name is required")
)
