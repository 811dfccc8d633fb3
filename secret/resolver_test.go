package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name   string
	values map[string]string
	err    error
	closed bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:file:/run/secrets/token", "file", "/run/secrets/token", true},
		{"secretref:vault:kv/data:key", "vault", "kv/data:key", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"plain-token", "", "", false},
	}
	for _, tt := range tests {
		p, ref, ok := ParseSecretRef(tt.in)
		if p != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = (%q, %q, %v)", tt.in, p, ref, ok)
		}
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("REGION", "eu")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one", "eu": "two"}})
	ctx := context.Background()

	tests := []struct {
		in   string
		want string
	}{
		{"literal", "literal"},
		{"secretref:stub:alpha", "one"},
		{"Bearer secretref:stub:alpha", "Bearer one"},
		{"secretref:stub:${REGION}", "two"},
		{"a=secretref:stub:alpha b=secretref:stub:eu", "a=one b=two"},
	}
	for _, tt := range tests {
		got, err := r.ResolveValue(ctx, tt.in)
		if err != nil {
			t.Errorf("ResolveValue(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolver_Errors(t *testing.T) {
	errBackend := errors.New("backend down")
	r := NewResolver(true,
		&stubProvider{name: "stub", values: map[string]string{"empty": ""}},
		&stubProvider{name: "broken", err: errBackend},
	)
	ctx := context.Background()

	if _, err := r.ResolveValue(ctx, "secretref:nope:x"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("unknown provider error = %v", err)
	}
	if _, err := r.ResolveValue(ctx, "secretref:stub:empty"); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("empty secret error = %v", err)
	}
	if _, err := r.ResolveValue(ctx, "Bearer secretref:broken:x"); !errors.Is(err, errBackend) {
		t.Errorf("inline provider error = %v", err)
	}

	lenient := NewResolver(false, &stubProvider{name: "stub"})
	if v, err := lenient.ResolveValue(ctx, "secretref:stub:missing"); err != nil || v != "" {
		t.Errorf("lenient ResolveValue() = (%q, %v)", v, err)
	}
}

func TestResolver_ResolveMap(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"k": "v"}})

	got, err := r.ResolveMap(context.Background(), map[string]string{"supabase": "secretref:stub:k", "n8n": "raw"})
	if err != nil {
		t.Fatal(err)
	}
	if got["supabase"] != "v" || got["n8n"] != "raw" {
		t.Errorf("ResolveMap() = %v", got)
	}

	_, err = r.ResolveMap(context.Background(), map[string]string{"gdrive": "secretref:stub:missing"})
	if !errors.Is(err, ErrEmptySecret) {
		t.Errorf("ResolveMap() error = %v", err)
	}
}

func TestResolver_Close(t *testing.T) {
	p := &stubProvider{name: "stub"}
	if err := NewResolver(true, p).Close(); err != nil || !p.closed {
		t.Errorf("Close() = %v, closed=%v", err, p.closed)
	}
}

func TestDefaultResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gdrive_token"), []byte("tok-123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUPABASE_SERVICE_KEY", "svc-key")

	r := NewDefaultResolver(dir)
	ctx := context.Background()

	if v, err := r.ResolveValue(ctx, "secretref:file:gdrive_token"); err != nil || v != "tok-123" {
		t.Errorf("file ref = (%q, %v)", v, err)
	}
	if v, err := r.ResolveValue(ctx, "secretref:file:"+filepath.Join(dir, "gdrive_token")); err != nil || v != "tok-123" {
		t.Errorf("absolute file ref = (%q, %v)", v, err)
	}
	if v, err := r.ResolveValue(ctx, "secretref:env:SUPABASE_SERVICE_KEY"); err != nil || v != "svc-key" {
		t.Errorf("env ref = (%q, %v)", v, err)
	}
	if _, err := r.ResolveValue(ctx, "secretref:env:METATOOLS_UNSET_VAR"); !errors.Is(err, ErrMissingEnv) {
		t.Errorf("unset env ref error = %v", err)
	}
}
