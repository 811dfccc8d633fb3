package health

import (
	"context"
	"encoding/json"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/jonwraymond/metatools/cache"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}

	data, err := json.Marshal(map[string]Status{"s": StatusDegraded})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"s":"degraded"}` {
		t.Errorf("json = %s", data)
	}
}

func TestResultConstructors(t *testing.T) {
	errBoom := errors.New("boom")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Timestamp.IsZero() {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow"); r.Status != StatusDegraded {
		t.Errorf("Degraded() = %+v", r)
	}
	r := Unhealthy("down", errBoom).WithDetails(map[string]any{"k": 1})
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, errBoom) || r.Details["k"] != 1 {
		t.Errorf("Unhealthy().WithDetails() = %+v", r)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("upstream", func(context.Context) Result { return Degraded("slow") })
	if c.Name() != "upstream" {
		t.Errorf("Name() = %q", c.Name())
	}
	if got := c.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Check().Status = %v", got)
	}
}

func TestMemoryChecker_Thresholds(t *testing.T) {
	tests := []struct {
		name      string
		heapAlloc uint64
		want      Status
	}{
		{"normal", 50, StatusHealthy},
		{"warning", 85, StatusDegraded},
		{"critical", 97, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryChecker(MemoryCheckerConfig{MaxAlloc: 100})
			c.memStats = func(s *runtime.MemStats) { s.HeapAlloc = tt.heapAlloc }

			r := c.Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tt.want, r.Message)
			}
			if tt.want == StatusUnhealthy && !errors.Is(r.Error, ErrCheckFailed) {
				t.Errorf("Error = %v, want ErrCheckFailed", r.Error)
			}
		})
	}
}

func TestMemoryChecker_ConfigDefaults(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{WarningThreshold: 2, CriticalThreshold: -1})
	if c.config.WarningThreshold != 0.8 || c.config.CriticalThreshold != 0.95 {
		t.Errorf("config = %+v", c.config)
	}

	c = NewMemoryChecker(MemoryCheckerConfig{WarningThreshold: 0.9, CriticalThreshold: 0.5})
	if c.config.CriticalThreshold != 0.99 {
		t.Errorf("CriticalThreshold = %v, want 0.99", c.config.CriticalThreshold)
	}
}

func TestMemoryChecker_RealStats(t *testing.T) {
	c := NewMemoryChecker(MemoryCheckerConfig{})
	r := c.Check(context.Background())
	if r.Status == StatusUnhealthy {
		t.Errorf("unexpected unhealthy: %s", r.Message)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := c.Check(ctx).Status; got != StatusUnhealthy {
		t.Errorf("cancelled context Status = %v, want unhealthy", got)
	}
}

func TestCacheChecker(t *testing.T) {
	browser := cache.New[string](cache.Config{MaxSize: 10, DefaultTTL: time.Minute})
	gdrive := cache.New[string](cache.Config{MaxSize: 10, DefaultTTL: time.Minute})
	stats := func() map[string]cache.Stats {
		return map[string]cache.Stats{"browser": browser.Stats(), "gdrive": gdrive.Stats()}
	}
	checker := NewCacheChecker(stats, 0)

	if checker.Name() != "cache" {
		t.Errorf("Name() = %q", checker.Name())
	}

	for i := 0; i < 8; i++ {
		browser.Set(string(rune('a'+i)), "v")
	}
	r := checker.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Errorf("8/10 Status = %v, want healthy", r.Status)
	}

	browser.Set("i", "v")
	r = checker.Check(context.Background())
	if r.Status != StatusDegraded {
		t.Fatalf("9/10 Status = %v, want degraded", r.Status)
	}
	if r.Message != "caches near capacity: browser" {
		t.Errorf("Message = %q", r.Message)
	}
	d, ok := r.Details["browser"].(map[string]any)
	if !ok || d["size"] != 9 || d["maxSize"] != 10 {
		t.Errorf("browser details = %v", r.Details["browser"])
	}
}

func TestCacheChecker_SweepsExpiredEntries(t *testing.T) {
	lru := cache.New[int](cache.Config{MaxSize: 2})
	lru.SetWithTTL("a", 1, time.Millisecond)
	lru.SetWithTTL("b", 2, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	checker := NewCacheChecker(func() map[string]cache.Stats {
		return map[string]cache.Stats{"n8n": lru.Stats()}
	}, 0.5)

	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("Status = %v, want healthy once expired entries are swept", got)
	}
}
