package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonwraymond/metatools/observe"
)

func protected(a Authenticator, logger observe.Logger) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(PrincipalFromContext(r.Context())))
	})
	return Middleware(a, logger)(RequireRole(RoleAdmin)(h))
}

func TestMiddleware(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	store.AddKey("k1", "admin-key", "ops", RoleAdmin)
	store.AddKey("k2", "viewer-key", "viewer")

	var logs bytes.Buffer
	h := protected(NewAPIKeyAuthenticator(store), observe.NewLoggerWithWriter("debug", &logs))

	tests := []struct {
		name     string
		key      string
		wantCode int
		wantBody string
	}{
		{"admin", "admin-key", http.StatusOK, "ops"},
		{"viewer", "viewer-key", http.StatusForbidden, ""},
		{"unknown", "nope", http.StatusUnauthorized, ""},
		{"missing", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/v1/caches/browser", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q", rec.Body.String())
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 without WWW-Authenticate")
			}
		})
	}

	if !strings.Contains(logs.String(), "admin request rejected") {
		t.Errorf("rejections not logged: %s", logs.String())
	}
	if strings.Contains(logs.String(), "viewer-key") || strings.Contains(logs.String(), "admin-key") {
		t.Error("API key leaked into logs")
	}
}

func TestMiddleware_InternalError(t *testing.T) {
	broken := NewAuthenticatorFunc("broken",
		func(http.Header) bool { return true },
		func(context.Context, http.Header) (*Identity, error) { return nil, errors.New("store down") },
	)
	rec := httptest.NewRecorder()
	protected(broken, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	protected(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Errorf("disabled auth = %d %q", rec.Code, rec.Body.String())
	}
}
