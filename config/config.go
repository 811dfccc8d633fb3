package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/metatools/cache"
	"github.com/jonwraymond/metatools/observe"
	"github.com/jonwraymond/metatools/provider"
)

// Config is the complete metatools configuration.
type Config struct {
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	Version     string `yaml:"version" env:"VERSION"`
	SecretsDir  string `yaml:"secrets_dir" env:"SECRETS_DIR"`

	Admin   AdminConfig   `yaml:"admin" envPrefix:"ADMIN_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Auth    AuthConfig    `yaml:"auth" envPrefix:"AUTH_"`
	Usage   UsageConfig   `yaml:"usage" envPrefix:"USAGE_"`
	Cache   CacheConfig   `yaml:"cache" envPrefix:"CACHE_"`

	// Providers is keyed by provider name. Every preset is present after
	// Load; YAML may add providers that have no preset.
	Providers ProviderMap `yaml:"providers"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled" env:"ENABLED"`
	Exporter  string  `yaml:"exporter" env:"EXPORTER"`
	SamplePct float64 `yaml:"sample_pct" env:"SAMPLE_PCT"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Exporter string `yaml:"exporter" env:"EXPORTER"`
}

// AuthConfig configures admin API authentication. With Enabled false every
// admin request is accepted.
type AuthConfig struct {
	Enabled     bool           `yaml:"enabled" env:"ENABLED"`
	JWTSecret   string         `yaml:"jwt_secret" env:"JWT_SECRET"`
	JWTIssuer   string         `yaml:"jwt_issuer" env:"JWT_ISSUER"`
	JWTAudience string         `yaml:"jwt_audience" env:"JWT_AUDIENCE"`
	AdminKey    string         `yaml:"admin_key" env:"ADMIN_KEY"`
	APIKeys     []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig declares one static API key.
type APIKeyConfig struct {
	ID        string   `yaml:"id"`
	Key       string   `yaml:"key"`
	Principal string   `yaml:"principal"`
	Roles     []string `yaml:"roles"`
}

// UsageConfig configures the usage tracker.
type UsageConfig struct {
	File       string `yaml:"file" env:"FILE"`
	MaxEntries int    `yaml:"max_entries" env:"MAX_ENTRIES"`
}

// CacheConfig holds settings shared by every provider cache.
type CacheConfig struct {
	Coalesce bool          `yaml:"coalesce" env:"COALESCE"`
	MaxTTL   time.Duration `yaml:"max_ttl" env:"MAX_TTL"`
}

// ProviderConfig configures one provider. Its environment variables are
// prefixed with the upper-cased provider name.
type ProviderConfig struct {
	MaxSize     int    `yaml:"max_size" env:"CACHE_MAX_SIZE"`
	TTLMs       int64  `yaml:"ttl_ms" env:"CACHE_TTL_MS"`
	AccessToken string `yaml:"access_token" env:"ACCESS_TOKEN"`
	APIBase     string `yaml:"api_base" env:"API_BASE"`
	Disabled    bool   `yaml:"disabled" env:"DISABLED"`
}

// ProviderMap holds provider settings by name. YAML entries are merged into
// existing entries field by field.
type ProviderMap map[string]*ProviderConfig

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *ProviderMap) UnmarshalYAML(n *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if *m == nil {
		*m = make(ProviderMap, len(raw))
	}
	for name, node := range raw {
		pc := (*m)[name]
		if pc == nil {
			pc = &ProviderConfig{}
			(*m)[name] = pc
		}
		if err := node.Decode(pc); err != nil {
			return fmt.Errorf("providers.%s: %w", name, err)
		}
	}
	return nil
}

// CacheConfig returns the LRU sizing for p.
func (p *ProviderConfig) CacheConfig() cache.Config {
	return cache.ConfigFromMillis(p.MaxSize, p.TTLMs)
}

// Preset returns p as a provider preset named name.
func (p *ProviderConfig) Preset(name string) provider.Preset {
	cfg := p.CacheConfig()
	return provider.Preset{Name: name, MaxSize: cfg.MaxSize, DefaultTTL: cfg.DefaultTTL}
}

// defaultAPIBase holds the public API roots. browser drives a local
// browser and n8n is self-hosted, so neither has one.
var defaultAPIBase = map[string]string{
	"feedly":   "https://api.feedly.com/v3",
	"gdrive":   "https://www.googleapis.com/drive/v3",
	"supabase": "https://api.supabase.com/v1",
}

// Defaults returns the configuration before any source is applied.
func Defaults() *Config {
	cfg := &Config{
		ServiceName: "metatools",
		Version:     "dev",
		SecretsDir:  "/run/secrets",
		Admin: AdminConfig{
			Addr:            "127.0.0.1:8089",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging:   LoggingConfig{Level: "info"},
		Tracing:   TracingConfig{Exporter: "otlp", SamplePct: 1},
		Metrics:   MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Usage:     UsageConfig{MaxEntries: 1000},
		Cache:     CacheConfig{MaxTTL: time.Hour},
		Providers: make(ProviderMap),
	}
	for _, p := range provider.Presets() {
		cfg.Providers[p.Name] = &ProviderConfig{
			MaxSize: p.MaxSize,
			TTLMs:   p.DefaultTTL.Milliseconds(),
			APIBase: defaultAPIBase[p.Name],
		}
	}
	return cfg
}

// ProviderNames returns the configured provider names in sorted order,
// including disabled ones.
func (c *Config) ProviderNames() []string {
	return slices.Sorted(maps.Keys(c.Providers))
}

// Policy returns the cache middleware policy shared by every provider.
func (c *Config) Policy() cache.Policy {
	p := cache.DefaultPolicy()
	p.MaxTTL = c.Cache.MaxTTL
	p.Coalesce = c.Cache.Coalesce
	return p
}

// ObserveConfig maps c onto the observe package configuration.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Tracing.Enabled,
			Exporter:  c.Tracing.Exporter,
			SamplePct: c.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Metrics.Enabled,
			Exporter: c.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Logging.Level,
		},
	}
}

// Validate reports every problem in c joined into one error.
func (c *Config) Validate() error {
	var errs []error

	oc := c.ObserveConfig()
	if err := oc.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Admin.Addr == "" {
		errs = append(errs, errors.New("admin.addr is required"))
	}
	if c.Usage.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("usage.max_entries must not be negative, got %d", c.Usage.MaxEntries))
	}
	if c.Cache.MaxTTL < 0 {
		errs = append(errs, fmt.Errorf("cache.max_ttl must not be negative, got %s", c.Cache.MaxTTL))
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" && c.Auth.AdminKey == "" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("auth is enabled but no jwt_secret, admin_key or api_keys are set"))
	}
	if !c.Auth.Enabled && !isLoopback(c.Admin.Addr) && c.hasAccessTokens() {
		errs = append(errs, fmt.Errorf("admin.addr %q is not loopback: enable auth before exposing provider credentials", c.Admin.Addr))
	}
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" || k.Principal == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key and principal are required", i))
		}
	}
	for _, name := range c.ProviderNames() {
		p := c.Providers[name]
		if p == nil {
			errs = append(errs, fmt.Errorf("providers.%s: empty entry", name))
			continue
		}
		if p.MaxSize <= 0 {
			errs = append(errs, fmt.Errorf("providers.%s.max_size must be positive, got %d", name, p.MaxSize))
		}
		if p.TTLMs <= 0 {
			errs = append(errs, fmt.Errorf("providers.%s.ttl_ms must be positive, got %d", name, p.TTLMs))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) hasAccessTokens() bool {
	for _, p := range c.Providers {
		if p != nil && !p.Disabled && p.AccessToken != "" {
			return true
		}
	}
	return false
}

// isLoopback reports whether addr only listens on a loopback interface. An
// empty host listens on every interface.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
