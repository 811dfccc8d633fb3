package health

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jonwraymond/metatools/cache"
)

// DefaultCacheWarningRatio is the fill ratio at which a provider cache reports degraded.
const DefaultCacheWarningRatio = 0.9

// CacheChecker reports degraded when any provider cache is at or above its
// warning fill ratio. A full cache still serves requests, so it never
// reports unhealthy.
type CacheChecker struct {
	stats   func() map[string]cache.Stats
	warning float64
}

// NewCacheChecker creates a CacheChecker. stats must return a fresh
// LRU.Stats per provider so expired entries are swept before measuring.
// A warning ratio outside (0, 1] selects DefaultCacheWarningRatio.
func NewCacheChecker(stats func() map[string]cache.Stats, warning float64) *CacheChecker {
	if warning <= 0 || warning > 1 {
		warning = DefaultCacheWarningRatio
	}
	return &CacheChecker{stats: stats, warning: warning}
}

// Name returns "cache".
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check reports per-provider size and capacity.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	all := c.stats()
	details := make(map[string]any, len(all))
	var full []string
	for provider, s := range all {
		details[provider] = map[string]any{
			"size":    s.Size,
			"maxSize": s.MaxSize,
		}
		if s.MaxSize > 0 && s.FillRatio() >= c.warning {
			full = append(full, provider)
		}
	}

	if len(full) > 0 {
		slices.Sort(full)
		return Degraded(fmt.Sprintf("caches near capacity: %s", strings.Join(full, ", "))).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d provider caches below %.0f%% capacity", len(all), c.warning*100)).WithDetails(details)
}
