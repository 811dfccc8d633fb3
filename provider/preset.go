package provider

import (
	"fmt"
	"time"

	"github.com/jonwraymond/metatools/cache"
)

// Preset is a provider's default cache sizing.
type Preset struct {
	Name       string
	MaxSize    int
	DefaultTTL time.Duration
}

// CacheConfig returns the cache configuration for p.
func (p Preset) CacheConfig() cache.Config {
	return cache.Config{MaxSize: p.MaxSize, DefaultTTL: p.DefaultTTL}
}

var presets = []Preset{
	{Name: "browser", MaxSize: 50, DefaultTTL: 30 * time.Second},
	{Name: "supabase", MaxSize: 100, DefaultTTL: 60 * time.Second},
	{Name: "gdrive", MaxSize: 50, DefaultTTL: 5 * time.Minute},
	{Name: "n8n", MaxSize: 30, DefaultTTL: 10 * time.Minute},
	{Name: "feedly", MaxSize: 100, DefaultTTL: 60 * time.Second},
}

// Presets returns the built-in provider presets.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// LookupPreset returns the preset for name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// MustPreset is LookupPreset for names known at compile time.
func MustPreset(name string) Preset {
	p, ok := LookupPreset(name)
	if !ok {
		panic(fmt.Sprintf("provider: no preset %q", name))
	}
	return p
}
