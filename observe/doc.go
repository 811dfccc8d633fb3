// Package observe provides observability for meta-tool calls.
//
// It wraps OpenTelemetry tracing and metrics, a structured JSON logger, and
// an execution middleware that records one span, one set of metrics, and one
// log line per call, including how the provider cache served it.
// RegisterCacheGauges exports the size and capacity of every provider cache
// as observable gauges.
package observe
