// Package config loads metatools settings.
//
// Sources are applied in order, each overriding the last:
//
//  1. built-in defaults, including the provider cache presets
//  2. a .env file in the working directory, if present
//  3. a YAML file named by Load's path or METATOOLS_CONFIG
//  4. METATOOLS_* environment variables
//  5. per-provider variables such as SUPABASE_CACHE_TTL_MS or N8N_ACCESS_TOKEN
//
// Secret-bearing fields may hold ${VAR} or secretref: references; call
// ResolveSecrets after Load to replace them.
package config
