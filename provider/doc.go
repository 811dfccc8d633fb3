// Package provider owns the per-provider caches and the adapter scaffold
// that every meta-tool call goes through.
//
// Each upstream provider (browser automation, Supabase, Google Drive, n8n,
// Feedly) gets its own cache.LRU sized by a Preset, registered in a Set.
// Caches are never shared across providers, so keys from different APIs
// cannot collide.
//
// An Adapter binds a provider's cache to the read-through cache
// middleware, the observe middleware and the usage tracker:
//
//	set := provider.NewSet()
//	feedly, _ := provider.NewAdapter[any](set, provider.MustPreset("feedly"))
//	resp := feedly.Call(ctx, "feedly_stream", params, nil, fetch)
//
// Call returns the Response envelope tools hand back to their client.
// Results served from cache carry "source": "cache".
package provider
