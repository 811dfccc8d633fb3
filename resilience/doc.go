// Package resilience guards upstream provider calls.
//
// An Executor composes three layers, outermost first: a CircuitBreaker
// that stops calling an upstream after consecutive failures, a Retry
// with exponential or constant backoff, and a per-attempt Timeout.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        Name:         "supabase",
//	        MaxFailures:  5,
//	        ResetTimeout: time.Minute,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	body, err := resilience.ExecuteValue(ctx, exec, fetch)
//
// Errors that RetryIf rejects stop the retry loop at once and are returned
// as-is, so callers can still match them with errors.Is and errors.As.
package resilience
