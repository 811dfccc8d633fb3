package cache

import "time"

// Policy configures how Middleware uses a cache.
type Policy struct {
	// DefaultTTL is the TTL stored when a request carries none.
	// If zero, the cache's own default applies.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// Disabled turns the middleware into a pass-through.
	Disabled bool

	// AllowUnsafe permits caching tools with unsafe tags (write, danger, etc.)
	AllowUnsafe bool

	// InvalidateOnUnsafe clears the cache after an unsafe tool succeeds.
	InvalidateOnUnsafe bool

	// Coalesce shares one upstream fetch among concurrent misses on a key.
	Coalesce bool
}

// DefaultPolicy returns the default middleware policy.
// MaxTTL: 1 hour, unsafe tools skipped and invalidating, no coalescing.
func DefaultPolicy() Policy {
	return Policy{
		MaxTTL:             1 * time.Hour,
		InvalidateOnUnsafe: true,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{Disabled: true}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return !p.Disabled
}

// EffectiveTTL returns the TTL to store, applying defaults and clamping.
// A zero result means "use the cache default".
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	if ttl < 0 {
		ttl = 0
	}

	return ttl
}
