package auth

import (
	"slices"
	"time"
)

// Method records how an identity was authenticated.
type Method string

const (
	MethodJWT       Method = "jwt"
	MethodAPIKey    Method = "api_key"
	MethodAnonymous Method = "anonymous"
)

// RoleAdmin may clear provider caches.
const RoleAdmin = "admin"

// Identity is an authenticated admin API caller.
type Identity struct {
	Principal string
	Roles     []string
	Method    Method

	// Claims holds token claims or API key metadata.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

// ExpiredAt reports whether the identity has expired at now. A zero
// ExpiresAt never expires.
func (id *Identity) ExpiredAt(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

// Anonymous returns the identity used when authentication is disabled.
func Anonymous() *Identity {
	return &Identity{Principal: "anonymous", Method: MethodAnonymous, Roles: []string{RoleAdmin}}
}
