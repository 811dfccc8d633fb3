package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/metatools/auth"
	"github.com/jonwraymond/metatools/health"
	"github.com/jonwraymond/metatools/observe"
	"github.com/jonwraymond/metatools/provider"
	"github.com/jonwraymond/metatools/usage"
)

// Options wires the admin API to the running components. Nil components
// disable their routes, except Auth: a nil Auth leaves mutating routes
// open.
type Options struct {
	Caches   *provider.Set
	Usage    *usage.Tracker
	Health   *health.Aggregator
	Relays   map[string]*provider.Relay
	Auth     auth.Authenticator
	Gatherer prometheus.Gatherer
	Logger   observe.Logger
}

type server struct {
	opts Options
	log  observe.Logger
}

// NewRouter returns the admin API handler.
func NewRouter(opts Options) chi.Router {
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}
	s := &server{opts: opts, log: opts.Logger.With(observe.F("component", "admin"))}

	r := chi.NewRouter()
	r.Use(RequestID, s.logRequests, middleware.Recoverer)

	if opts.Health != nil {
		health.Mount(r, opts.Health)
	}
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if opts.Caches != nil {
			r.Get("/caches", s.listCaches)
			r.Get("/caches/{name}", s.getCache)
		}
		if opts.Usage != nil {
			r.Get("/usage", s.usageSummary)
			r.Get("/usage/recent", s.usageRecent)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(opts.Auth, s.log), auth.RequireRole(auth.RoleAdmin))

			if opts.Caches != nil {
				r.Delete("/caches", s.clearAllCaches)
				r.Delete("/caches/{name}", s.clearCache)
			}
			if opts.Usage != nil {
				r.Delete("/usage", s.clearUsage)
			}
			if len(opts.Relays) > 0 {
				r.Post("/providers/{name}/call", s.relayCall)
			}
		})
	})

	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		fields := []observe.Field{
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", ww.Status()),
			observe.F("duration_ms", float64(time.Since(start).Microseconds())/1000),
			observe.F("request_id", RequestIDFromContext(r.Context())),
		}
		if r.Method == http.MethodGet {
			s.log.Debug(r.Context(), "admin request", fields...)
			return
		}
		s.log.Info(r.Context(), "admin request", fields...)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
