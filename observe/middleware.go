package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Execution is what an ExecuteFunc reports back to the middleware.
type Execution struct {
	// Value is the call result, passed through unchanged.
	Value any

	// CacheOutcome names how the provider cache served the call
	// (hit, miss, bypass, skip, shared). Empty when no cache was consulted.
	CacheOutcome string
}

// ExecuteFunc is the call signature that Middleware wraps.
type ExecuteFunc func(ctx context.Context, tool ToolMeta, input any) (Execution, error)

// Middleware wraps meta-tool calls with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap returns a function safe for concurrent use.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewMiddleware creates a Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger, now: time.Now}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap wraps fn with one span, call metrics, a cache outcome count, and one log line.
// Cache hits log at debug level; other successful calls at info.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, tool ToolMeta, input any) (Execution, error) {
		ctx, span := m.tracer.StartSpan(ctx, tool)
		start := m.now()

		exec, err := fn(ctx, tool, input)

		duration := m.now().Sub(start)
		if exec.CacheOutcome != "" {
			span.SetAttributes(attribute.String("cache.outcome", exec.CacheOutcome))
			m.metrics.RecordCacheOutcome(ctx, tool, exec.CacheOutcome)
		}
		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, tool, duration, err)

		fields := []Field{F("duration_ms", float64(duration.Microseconds())/1000)}
		if exec.CacheOutcome != "" {
			fields = append(fields, F("cache.outcome", exec.CacheOutcome))
		}

		log := m.logger.WithTool(tool)
		switch {
		case err != nil:
			log.Error(ctx, "tool call failed", append(fields, F("error", err))...)
		case exec.CacheOutcome == "hit" || exec.CacheOutcome == "shared":
			log.Debug(ctx, "tool call served from cache", fields...)
		default:
			log.Info(ctx, "tool call completed", fields...)
		}

		return exec, err
	}
}
