package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials carried in request headers.
//
// Authenticate returns an error wrapping one of the credential sentinels
// (see IsAuthFailure) when the caller is rejected, and any other error for
// internal failures. Implementations must be safe for concurrent use.
type Authenticator interface {
	Name() string

	// Supports reports whether h carries a credential this authenticator reads.
	Supports(h http.Header) bool

	Authenticate(ctx context.Context, h http.Header) (*Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc struct {
	name     string
	supports func(http.Header) bool
	auth     func(context.Context, http.Header) (*Identity, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(name string, supports func(http.Header) bool, auth func(context.Context, http.Header) (*Identity, error)) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

func (f *AuthenticatorFunc) Name() string                { return f.name }
func (f *AuthenticatorFunc) Supports(h http.Header) bool { return f.supports(h) }

func (f *AuthenticatorFunc) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	return f.auth(ctx, h)
}

var _ Authenticator = (*AuthenticatorFunc)(nil)
