package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

type testHarness struct {
	mw       *Middleware
	spans    func() int
	logs     *bytes.Buffer
	collect  func() (total, errs, hits int64)
	lastSpan func() (name string, cacheOutcome string)
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	tracer, recorder := newRecordingTracer()
	reader, mp := newTestMeter(t)
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	mw := NewMiddleware(tracer, metrics, NewLoggerWithWriter("debug", &logs))

	return &testHarness{
		mw:    mw,
		logs:  &logs,
		spans: func() int { return len(recorder.Ended()) },
		collect: func() (int64, int64, int64) {
			rm := collect(t, reader)
			return sumByAttr(t, rm, MetricCallTotal, "", ""),
				sumByAttr(t, rm, MetricCallErrors, "", ""),
				sumByAttr(t, rm, MetricCacheLookups, "cache.outcome", "hit")
		},
		lastSpan: func() (string, string) {
			ended := recorder.Ended()
			s := ended[len(ended)-1]
			v, _ := spanAttr(s, "cache.outcome")
			return s.Name(), v.AsString()
		},
	}
}

func TestMiddleware_SuccessPath(t *testing.T) {
	h := newHarness(t)
	meta := ToolMeta{Provider: "supabase", Name: "l7_query"}

	wrapped := h.mw.Wrap(func(ctx context.Context, tool ToolMeta, in any) (Execution, error) {
		return Execution{Value: "rows", CacheOutcome: "miss"}, nil
	})
	exec, err := wrapped(context.Background(), meta, map[string]any{"table": "units"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Value != "rows" {
		t.Errorf("Value = %v, want rows", exec.Value)
	}

	if h.spans() != 1 {
		t.Fatalf("spans = %d, want 1", h.spans())
	}
	name, outcome := h.lastSpan()
	if name != "metatool.supabase.l7_query" || outcome != "miss" {
		t.Errorf("span = (%q, %q)", name, outcome)
	}

	total, errs, _ := h.collect()
	if total != 1 || errs != 0 {
		t.Errorf("total=%d errors=%d, want 1/0", total, errs)
	}

	entry := decodeLines(t, h.logs)[0]
	if entry["msg"] != "tool call completed" || entry["cache.outcome"] != "miss" {
		t.Errorf("log entry = %v", entry)
	}
	if _, ok := entry["duration_ms"].(float64); !ok {
		t.Error("duration_ms missing")
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	h := newHarness(t)
	upstream := errors.New("n8n API error (401): unauthorized")

	wrapped := h.mw.Wrap(func(ctx context.Context, tool ToolMeta, in any) (Execution, error) {
		return Execution{CacheOutcome: "miss"}, upstream
	})
	_, err := wrapped(context.Background(), ToolMeta{Provider: "n8n", Name: "n8n_get_workflow"}, nil)
	if !errors.Is(err, upstream) {
		t.Fatalf("error = %v, want %v", err, upstream)
	}

	_, errs, _ := h.collect()
	if errs != 1 {
		t.Errorf("errors = %d, want 1", errs)
	}
	entry := decodeLines(t, h.logs)[0]
	if entry["level"] != "error" || entry["error"] != upstream.Error() {
		t.Errorf("log entry = %v", entry)
	}
}

func TestMiddleware_CacheHitLogsAtDebug(t *testing.T) {
	h := newHarness(t)

	wrapped := h.mw.Wrap(func(ctx context.Context, tool ToolMeta, in any) (Execution, error) {
		return Execution{Value: 1, CacheOutcome: "hit"}, nil
	})
	for i := 0; i < 3; i++ {
		if _, err := wrapped(context.Background(), ToolMeta{Provider: "feedly", Name: "feedly_stream"}, nil); err != nil {
			t.Fatal(err)
		}
	}

	_, _, hits := h.collect()
	if hits != 3 {
		t.Errorf("cache hits = %d, want 3", hits)
	}
	for _, entry := range decodeLines(t, h.logs) {
		if entry["level"] != "debug" {
			t.Errorf("hit logged at %v, want debug", entry["level"])
		}
	}
}

func TestMiddleware_NoCacheOutcome(t *testing.T) {
	h := newHarness(t)

	wrapped := h.mw.Wrap(func(ctx context.Context, tool ToolMeta, in any) (Execution, error) {
		return Execution{Value: "ok"}, nil
	})
	if _, err := wrapped(context.Background(), ToolMeta{Name: "usage_stats"}, nil); err != nil {
		t.Fatal(err)
	}

	if _, outcome := h.lastSpan(); outcome != "" {
		t.Errorf("cache.outcome = %q, want unset", outcome)
	}
	if _, ok := decodeLines(t, h.logs)[0]["cache.outcome"]; ok {
		t.Error("log should omit cache.outcome when no cache was consulted")
	}
}

func TestMiddleware_Duration(t *testing.T) {
	h := newHarness(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(250 * time.Millisecond)}
	h.mw.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	wrapped := h.mw.Wrap(func(ctx context.Context, tool ToolMeta, in any) (Execution, error) {
		return Execution{}, nil
	})
	wrapped(context.Background(), ToolMeta{Name: "t"}, nil)

	if got := decodeLines(t, h.logs)[0]["duration_ms"]; got != 250.0 {
		t.Errorf("duration_ms = %v, want 250", got)
	}
}

func TestNewMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	wrapped := mw.Wrap(func(ctx context.Context, tool ToolMeta, in any) (Execution, error) {
		return Execution{Value: 42, CacheOutcome: "skip"}, nil
	})
	exec, err := wrapped(context.Background(), ToolMeta{Name: "t"}, nil)
	if err != nil || exec.Value != 42 {
		t.Errorf("Wrap with nil components = (%v, %v)", exec, err)
	}
}
