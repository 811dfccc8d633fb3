package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")

	// ErrUnknownProvider is returned for a secretref naming no registered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrEmptySecret is returned by a strict Resolver when a reference resolves to "".
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrInvalidRef is returned when a provider cannot use a reference.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
