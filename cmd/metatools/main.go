// Command metatools runs the provider caches behind the admin API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/metatools/admin"
	"github.com/jonwraymond/metatools/auth"
	"github.com/jonwraymond/metatools/config"
	"github.com/jonwraymond/metatools/health"
	"github.com/jonwraymond/metatools/observe"
	"github.com/jonwraymond/metatools/provider"
	"github.com/jonwraymond/metatools/secret"
	"github.com/jonwraymond/metatools/upstream"
	"github.com/jonwraymond/metatools/usage"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "metatools:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	resolver := secret.NewDefaultResolver(cfg.SecretsDir)
	defer resolver.Close()
	if err := cfg.ResolveSecrets(ctx, resolver); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ocfg := cfg.ObserveConfig()
	ocfg.Metrics.Registerer = reg
	obs, err := observe.NewObserver(ctx, ocfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}

	tracker := usage.NewTracker(usage.Options{
		Path:       cfg.Usage.File,
		MaxEntries: cfg.Usage.MaxEntries,
		Logger:     logger,
	})

	set := provider.NewSet()
	relays, err := buildProviders(ctx, cfg, set, mw, tracker, logger)
	if err != nil {
		return err
	}

	if _, err := observe.RegisterCacheGauges(obs.Meter(), set.Stats); err != nil {
		return err
	}

	agg := health.NewAggregator()
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	agg.Register("caches", health.NewCacheChecker(set.Stats, health.DefaultCacheWarningRatio))

	srv := &http.Server{
		Addr: cfg.Admin.Addr,
		Handler: admin.NewRouter(admin.Options{
			Caches:   set,
			Usage:    tracker,
			Health:   agg,
			Relays:   relays,
			Auth:     buildAuthenticator(cfg.Auth),
			Gatherer: reg,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Admin.ReadTimeout,
		WriteTimeout:      cfg.Admin.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(ctx, "admin server listening",
			observe.F("addr", cfg.Admin.Addr), observe.F("providers", set.Names()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
		defer cancel()
		logger.Info(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildProviders creates one cache adapter per enabled provider and a relay
// for every provider with an API base.
func buildProviders(ctx context.Context, cfg *config.Config, set *provider.Set, mw *observe.Middleware, tracker *usage.Tracker, logger observe.Logger) (map[string]*provider.Relay, error) {
	relays := make(map[string]*provider.Relay)
	for _, name := range cfg.ProviderNames() {
		pc := cfg.Providers[name]
		if pc.Disabled {
			logger.Info(ctx, "provider disabled", observe.F("provider", name))
			continue
		}

		adapter, err := provider.NewAdapter[any](set, pc.Preset(name),
			provider.WithPolicy(cfg.Policy()),
			provider.WithObserve(mw),
			provider.WithUsage(tracker),
			provider.WithLogger(logger),
			provider.WithSource(name+"_api"),
		)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		if pc.APIBase == "" {
			continue
		}

		client, err := upstream.New(upstream.Config{
			Provider: name,
			BaseURL:  pc.APIBase,
			Token:    pc.AccessToken,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		if pc.AccessToken == "" {
			logger.Warn(ctx, "provider has no access token", observe.F("provider", name))
		}
		relays[name] = provider.NewRelay(adapter, client)
	}
	return relays, nil
}

// buildAuthenticator returns nil when auth is disabled, which leaves the
// admin API open.
func buildAuthenticator(c config.AuthConfig) auth.Authenticator {
	if !c.Enabled {
		return nil
	}

	var chain []auth.Authenticator
	if c.JWTSecret != "" {
		chain = append(chain, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(c.JWTSecret),
			Issuer:   c.JWTIssuer,
			Audience: c.JWTAudience,
			Leeway:   30 * time.Second,
		}))
	}

	store := auth.NewMemoryAPIKeyStore()
	if c.AdminKey != "" {
		store.AddKey("admin", c.AdminKey, "admin", auth.RoleAdmin)
	}
	for _, k := range c.APIKeys {
		store.AddKey(k.ID, k.Key, k.Principal, k.Roles...)
	}
	chain = append(chain, auth.NewAPIKeyAuthenticator(store))

	return auth.NewCompositeAuthenticator(chain...)
}
