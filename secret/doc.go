// Package secret resolves provider credentials referenced from configuration.
//
// A configured value may hold a literal token, ${VAR} references expanded
// strictly from the environment, or a secret reference:
//
//	secretref:env:SUPABASE_SERVICE_KEY
//	secretref:file:/run/secrets/gdrive_token
//	Bearer secretref:file:/run/secrets/n8n_token
//
// References are resolved by the Provider registered under the middle
// segment. Resolved values are never logged.
package secret
