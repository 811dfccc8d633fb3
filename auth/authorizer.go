package auth

import (
	"fmt"
	"net/http"
)

// AuthzError reports a role check failure. It matches ErrForbidden.
type AuthzError struct {
	Principal string
	Role      string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %q lacks role %q", e.Principal, e.Role)
}

// Is reports whether target is ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// Authorize returns an *AuthzError unless id carries role.
func Authorize(id *Identity, role string) error {
	if id.HasRole(role) {
		return nil
	}
	principal := ""
	if id != nil {
		principal = id.Principal
	}
	return &AuthzError{Principal: principal, Role: role}
}

// RequireRole rejects requests whose context identity lacks role with 403.
// It must run after Middleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Authorize(IdentityFromContext(r.Context()), role); err != nil {
				writeError(w, http.StatusForbidden, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
