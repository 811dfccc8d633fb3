// Package admin serves the metatools operations API.
//
// Read endpoints report cache and usage state; mutating endpoints
// (cache and usage clears, provider relay calls) require the admin role
// when an authenticator is configured:
//
//	GET    /healthz, /readyz, /health, /health/{name}
//	GET    /metrics
//	GET    /v1/caches
//	GET    /v1/caches/{name}
//	DELETE /v1/caches
//	DELETE /v1/caches/{name}
//	GET    /v1/usage?tool=&hours=
//	GET    /v1/usage/recent?count=
//	DELETE /v1/usage
//	POST   /v1/providers/{name}/call
package admin
