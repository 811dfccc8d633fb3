package config

import (
	"context"
	"fmt"

	"github.com/jonwraymond/metatools/secret"
)

// ResolveSecrets replaces ${VAR} and secretref: references in the
// secret-bearing fields of c. Errors name the field, never its value.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	resolve := func(field string, v *string) error {
		if *v == "" {
			return nil
		}
		out, err := r.ResolveValue(ctx, *v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
		*v = out
		return nil
	}

	if err := resolve("auth.jwt_secret", &c.Auth.JWTSecret); err != nil {
		return err
	}
	if err := resolve("auth.admin_key", &c.Auth.AdminKey); err != nil {
		return err
	}
	for i := range c.Auth.APIKeys {
		if err := resolve(fmt.Sprintf("auth.api_keys[%d].key", i), &c.Auth.APIKeys[i].Key); err != nil {
			return err
		}
	}
	for _, name := range c.ProviderNames() {
		pc := c.Providers[name]
		if pc == nil {
			continue
		}
		if err := resolve("providers."+name+".access_token", &pc.AccessToken); err != nil {
			return err
		}
		if err := resolve("providers."+name+".api_base", &pc.APIBase); err != nil {
			return err
		}
	}
	return nil
}
