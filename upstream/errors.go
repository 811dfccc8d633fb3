package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingToken is returned when a client has no access token.
	ErrMissingToken = errors.New("upstream: access token not configured")

	// ErrMissingBaseURL is returned when a client has no API base URL.
	ErrMissingBaseURL = errors.New("upstream: api base url not configured")
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Code, e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Retryable reports whether err is worth retrying: transport failures,
// 429 and 5xx responses. Caller cancellation is never retried.
func Retryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrMissingToken),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var de *DecodeError
	return !errors.As(err, &de)
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Provider string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s API returned invalid JSON: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
