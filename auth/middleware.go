package auth

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/metatools/observe"
)

// Middleware authenticates each request with a and stores the Identity in
// the request context. Rejected callers get 401, internal errors 500. A
// nil authenticator admits every request as Anonymous.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Anonymous())))
				return
			}

			id, err := a.Authenticate(r.Context(), r.Header)
			if err != nil {
				if IsAuthFailure(err) {
					logger.Warn(r.Context(), "admin request rejected",
						observe.F("path", r.URL.Path), observe.F("error", err))
					w.Header().Set("WWW-Authenticate", `Bearer realm="metatools"`)
					writeError(w, http.StatusUnauthorized, err)
					return
				}
				logger.Error(r.Context(), "authentication failed",
					observe.F("authenticator", a.Name()), observe.F("error", err))
				writeError(w, http.StatusInternalServerError, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
