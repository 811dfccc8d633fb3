package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every global environment variable.
	EnvPrefix = "METATOOLS_"

	// EnvConfigFile names the YAML file when Load is given no path.
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds the configuration from defaults, .env, the YAML file at path
// (or $METATOOLS_CONFIG) and the environment, then validates it. An empty
// path with no METATOOLS_CONFIG skips the file.
func Load(path string) (*Config, error) {
	return load(".env", path)
}

func load(dotenv, path string) (*Config, error) {
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", dotenv, err)
	}

	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %w", ErrReadFile, path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	for _, name := range c.ProviderNames() {
		pc := c.Providers[name]
		if pc == nil {
			continue
		}
		if err := env.ParseWithOptions(pc, env.Options{Prefix: ProviderEnvPrefix(name)}); err != nil {
			return fmt.Errorf("config: provider %s environment: %w", name, err)
		}
	}
	return nil
}

// ProviderEnvPrefix returns the environment prefix for a provider, e.g.
// "GDRIVE_" for gdrive.
func ProviderEnvPrefix(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name) + "_"
}
