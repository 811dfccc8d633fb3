package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestToolMeta_Naming(t *testing.T) {
	tests := []struct {
		meta     ToolMeta
		wantID   string
		wantSpan string
	}{
		{ToolMeta{Provider: "feedly", Name: "feedly_stream"}, "feedly.feedly_stream", "metatool.feedly.feedly_stream"},
		{ToolMeta{Name: "usage_stats"}, "usage_stats", "metatool.usage_stats"},
	}

	for _, tt := range tests {
		if got := tt.meta.ToolID(); got != tt.wantID {
			t.Errorf("ToolID() = %q, want %q", got, tt.wantID)
		}
		if got := tt.meta.SpanName(); got != tt.wantSpan {
			t.Errorf("SpanName() = %q, want %q", got, tt.wantSpan)
		}
	}
}

func TestTracer_SpanAttributes(t *testing.T) {
	tracer, recorder := newRecordingTracer()
	meta := ToolMeta{Provider: "browser", Name: "browser_snapshot", Tags: []string{"read"}}

	_, span := tracer.StartSpan(context.Background(), meta)
	tracer.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "metatool.browser.browser_snapshot" {
		t.Errorf("span name = %q", s.Name())
	}
	if v, _ := spanAttr(s, "tool.provider"); v.AsString() != "browser" {
		t.Errorf("tool.provider = %q, want browser", v.AsString())
	}
	if v, _ := spanAttr(s, "tool.tags"); len(v.AsStringSlice()) != 1 {
		t.Errorf("tool.tags = %v, want [read]", v.AsStringSlice())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_EndSpanWithError(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "l7_update"})
	tracer.EndSpan(span, errors.New("supabase API error (500): boom"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if v, _ := spanAttr(s, "tool.error"); !v.AsBool() {
		t.Error("tool.error should be true")
	}
	if len(s.Events()) == 0 {
		t.Error("error should be recorded as a span event")
	}
}

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "noop"})
	tracer.EndSpan(span, errors.New("ignored"))
}
