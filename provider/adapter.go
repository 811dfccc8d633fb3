package provider

import (
	"context"
	"maps"
	"time"

	"github.com/jonwraymond/metatools/cache"
	"github.com/jonwraymond/metatools/observe"
	"github.com/jonwraymond/metatools/usage"
)

// UseCacheParam is the call parameter that, when false, skips the cache
// read. It never takes part in the cache key.
const UseCacheParam = "useCache"

type adapterOptions struct {
	cacheConfig *cache.Config
	policy      cache.Policy
	keyer       cache.Keyer
	observe     *observe.Middleware
	usage       *usage.Tracker
	logger      observe.Logger
	source      string
	now         func() time.Time
}

// Option configures an Adapter.
type Option func(*adapterOptions)

// WithCacheConfig overrides the preset sizing.
func WithCacheConfig(cfg cache.Config) Option {
	return func(o *adapterOptions) { o.cacheConfig = &cfg }
}

// WithPolicy sets the cache middleware policy. Default: cache.DefaultPolicy().
func WithPolicy(p cache.Policy) Option {
	return func(o *adapterOptions) { o.policy = p }
}

// WithKeyer sets the cache keyer. Default: a HashKeyer over DefaultKeyer.
func WithKeyer(k cache.Keyer) Option {
	return func(o *adapterOptions) { o.keyer = k }
}

// WithObserve traces, measures and logs every call with m.
func WithObserve(m *observe.Middleware) Option {
	return func(o *adapterOptions) { o.observe = m }
}

// WithUsage records every call in t.
func WithUsage(t *usage.Tracker) Option {
	return func(o *adapterOptions) { o.usage = t }
}

// WithLogger sets the logger for cache evictions.
func WithLogger(l observe.Logger) Option {
	return func(o *adapterOptions) { o.logger = l }
}

// WithSource names where fresh results come from, e.g. "database" or
// "n8n_api". Default: the provider name.
func WithSource(s string) Option {
	return func(o *adapterOptions) { o.source = s }
}

// Adapter runs one provider's tool calls through its cache.
type Adapter[V any] struct {
	name    string
	opts    adapterOptions
	lru     *cache.LRU[V]
	cacheMW *cache.Middleware[V]
}

// NewAdapter creates the provider cache described by preset, registers it
// in set and returns the adapter that uses it.
func NewAdapter[V any](set *Set, preset Preset, opts ...Option) (*Adapter[V], error) {
	o := adapterOptions{
		policy: cache.DefaultPolicy(),
		keyer:  cache.NewHashKeyer(cache.NewDefaultKeyer()),
		source: preset.Name,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observe == nil {
		o.observe = observe.NewMiddleware(nil, nil, nil)
	}
	if o.logger == nil {
		o.logger = observe.NopLogger()
	}
	cfg := preset.CacheConfig()
	if o.cacheConfig != nil {
		cfg = *o.cacheConfig
	}

	lru := cache.New[V](cfg)
	if err := set.Register(preset.Name, lru); err != nil {
		return nil, err
	}

	log := o.logger.With(observe.F("provider", preset.Name))
	lru.OnEvict(func(key string, _ V) {
		log.Debug(context.Background(), "cache entry evicted", observe.F("cache.key", key))
	})

	return &Adapter[V]{
		name:    preset.Name,
		opts:    o,
		lru:     lru,
		cacheMW: cache.NewMiddleware(lru, o.keyer, o.policy, nil),
	}, nil
}

// Name returns the provider name.
func (a *Adapter[V]) Name() string {
	return a.name
}

// Cache returns the provider cache.
func (a *Adapter[V]) Cache() *cache.LRU[V] {
	return a.lru
}

// Fetch serves tool from the cache or calls fetch. tags mark unsafe tools
// (see cache.UnsafeTags), which bypass the cache and, under the default
// policy, clear it after success. params[UseCacheParam] == false forces a
// fresh fetch whose result is still stored.
func (a *Adapter[V]) Fetch(ctx context.Context, tool string, params map[string]any, tags []string, fetch cache.FetchFunc[V]) (V, cache.Outcome, error) {
	input, bypass := splitUseCache(params)

	var (
		value   V
		outcome = cache.OutcomeSkip
	)
	call := a.opts.observe.Wrap(func(ctx context.Context, _ observe.ToolMeta, in any) (observe.Execution, error) {
		v, out, err := a.cacheMW.Execute(ctx, cache.Request{
			ToolID: tool,
			Input:  in,
			Tags:   tags,
			Bypass: bypass,
		}, fetch)
		value, outcome = v, out
		return observe.Execution{Value: v, CacheOutcome: out.String()}, err
	})

	start := a.opts.now()
	_, err := call(ctx, observe.ToolMeta{Provider: a.name, Name: tool, Tags: tags}, input)

	if a.opts.usage != nil {
		e := usage.Entry{
			Tool:       tool,
			Provider:   a.name,
			CacheHit:   outcome.Cached(),
			DurationMs: float64(a.opts.now().Sub(start).Microseconds()) / 1000,
			Success:    err == nil,
		}
		if err != nil {
			e.Error = err.Error()
		}
		a.opts.usage.Record(ctx, e)
	}
	return value, outcome, err
}

// Call is Fetch rendered as a Response. Errors become error responses.
func (a *Adapter[V]) Call(ctx context.Context, tool string, params map[string]any, tags []string, fetch cache.FetchFunc[V]) Response {
	v, outcome, err := a.Fetch(ctx, tool, params, tags, fetch)
	if err != nil {
		return ErrorResponse(err)
	}

	source := a.opts.source
	if outcome.Cached() {
		source = SourceCache
	}
	resp, err := JSONResponse(source, v)
	if err != nil {
		return ErrorResponse(err)
	}
	return resp
}

func splitUseCache(params map[string]any) (map[string]any, bool) {
	use, ok := params[UseCacheParam].(bool)
	if !ok {
		return params, false
	}
	input := maps.Clone(params)
	delete(input, UseCacheParam)
	return input, !use
}
