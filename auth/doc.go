// Package auth authenticates callers of the metatools admin API.
//
// Two credential types are supported: HMAC-signed JWT bearer tokens and
// static API keys sent in X-API-Key. A CompositeAuthenticator tries them
// in order. Middleware attaches the resulting Identity to the request
// context, and RequireRole gates destructive routes such as cache clears.
package auth
