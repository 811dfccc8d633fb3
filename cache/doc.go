// Package cache provides the bounded TTL/LRU cache shared by every meta-tool
// adapter.
//
// An LRU maps string keys to values of a caller-chosen type. It holds at most
// MaxSize entries, evicting the least recently used entry before inserting a
// new one, and expires entries lazily: an entry past its deadline is removed
// when it is next read, or when Stats sweeps the whole cache. Reads promote
// recency but never extend an entry's deadline.
//
// GenerateKey derives canonical keys from structured parameters so that
// structurally equal queries share a slot regardless of map ordering:
//
//	key, _ := cache.GenerateKey("query", map[string]any{
//	    "table": "leases",
//	    "limit": 50,
//	})
//	// query:limit:50|table:"leases"
//
// Middleware packages the miss, fetch, set sequence adapters perform around
// upstream calls, with unsafe-tag skipping, write invalidation and optional
// request coalescing.
//
// Each adapter owns its own LRU. Instances are never shared across unrelated
// key namespaces.
package cache
