package cache

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc performs the upstream call whose result is cached.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// SkipRule determines whether to skip caching for a given tool.
// Returns true if caching should be skipped.
type SkipRule func(toolID string, tags []string) bool

// UnsafeTags are tags that indicate a tool has side effects and should not be cached.
var UnsafeTags = []string{"write", "danger", "unsafe", "mutation", "delete"}

// DefaultSkipRule skips caching for tools with unsafe tags.
// Tag matching is case-insensitive.
func DefaultSkipRule(_ string, tags []string) bool {
	for _, tag := range tags {
		tagLower := strings.ToLower(tag)
		for _, unsafe := range UnsafeTags {
			if tagLower == unsafe {
				return true
			}
		}
	}
	return false
}

// Outcome describes how a Middleware call was served.
type Outcome int

const (
	// OutcomeMiss means the value was fetched upstream and stored.
	OutcomeMiss Outcome = iota
	// OutcomeHit means the value came from the cache.
	OutcomeHit
	// OutcomeBypass means the read was skipped on request; the result was stored.
	OutcomeBypass
	// OutcomeSkip means the cache was not consulted at all.
	OutcomeSkip
	// OutcomeShared means another in-flight fetch for the same key supplied the value.
	OutcomeShared
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeMiss:
		return "miss"
	case OutcomeHit:
		return "hit"
	case OutcomeBypass:
		return "bypass"
	case OutcomeSkip:
		return "skip"
	case OutcomeShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Cached reports whether the value avoided an upstream call.
func (o Outcome) Cached() bool {
	return o == OutcomeHit || o == OutcomeShared
}

// Request describes one cacheable tool invocation.
type Request struct {
	// ToolID names the tool; the keyer uses it as the key prefix.
	ToolID string

	// Input holds the parameters that identify the result.
	Input any

	// Tags classify the tool; unsafe tags disable caching.
	Tags []string

	// TTL overrides the policy TTL when positive.
	TTL time.Duration

	// Bypass skips the cache read but still stores the fresh result.
	Bypass bool
}

// Middleware wraps upstream fetches with an LRU.
type Middleware[V any] struct {
	cache    *LRU[V]
	keyer    Keyer
	policy   Policy
	skipRule SkipRule
	group    singleflight.Group
}

// NewMiddleware creates a cache middleware.
// If keyer is nil, DefaultKeyer is used. If skipRule is nil, DefaultSkipRule is used.
func NewMiddleware[V any](cache *LRU[V], keyer Keyer, policy Policy, skipRule SkipRule) *Middleware[V] {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if skipRule == nil {
		skipRule = DefaultSkipRule
	}
	return &Middleware[V]{
		cache:    cache,
		keyer:    keyer,
		policy:   policy,
		skipRule: skipRule,
	}
}

// Cache returns the underlying LRU.
func (m *Middleware[V]) Cache() *LRU[V] {
	return m.cache
}

// Execute serves req from the cache or calls fetch and caches its result.
// Errors are NOT cached. Without Policy.Coalesce, concurrent misses on the
// same key each call fetch.
func (m *Middleware[V]) Execute(ctx context.Context, req Request, fetch FetchFunc[V]) (V, Outcome, error) {
	if m.cache == nil || !m.policy.ShouldCache() {
		v, err := fetch(ctx)
		return v, OutcomeSkip, err
	}

	if !m.policy.AllowUnsafe && m.skipRule(req.ToolID, req.Tags) {
		v, err := fetch(ctx)
		if err == nil && m.policy.InvalidateOnUnsafe {
			m.cache.Clear()
		}
		return v, OutcomeSkip, err
	}

	key, err := m.keyer.Key(req.ToolID, req.Input)
	if err == nil {
		err = ValidateKey(key)
	}
	if err != nil {
		v, err := fetch(ctx)
		return v, OutcomeSkip, err
	}

	if !req.Bypass {
		if v, ok := m.cache.Get(key); ok {
			return v, OutcomeHit, nil
		}
	}

	ttl := m.policy.EffectiveTTL(req.TTL)

	if m.policy.Coalesce && !req.Bypass {
		return m.executeShared(ctx, key, ttl, fetch)
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, m.missOutcome(req), err
	}
	m.cache.SetWithTTL(key, v, ttl)
	return v, m.missOutcome(req), nil
}

func (m *Middleware[V]) executeShared(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc[V]) (V, Outcome, error) {
	var zero V

	// The shared fetch outlives any one caller; each caller still gives up
	// on its own ctx below.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		v, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		m.cache.SetWithTTL(key, v, ttl)
		return v, nil
	})

	select {
	case r := <-ch:
		outcome := OutcomeMiss
		if r.Shared {
			outcome = OutcomeShared
		}
		if r.Err != nil {
			return zero, outcome, r.Err
		}
		v, _ := r.Val.(V)
		return v, outcome, nil
	case <-ctx.Done():
		return zero, OutcomeMiss, ctx.Err()
	}
}

func (m *Middleware[V]) missOutcome(req Request) Outcome {
	if req.Bypass {
		return OutcomeBypass
	}
	return OutcomeMiss
}
