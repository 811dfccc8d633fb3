// Package upstream is the JSON HTTP client meta-tool adapters use to reach
// provider APIs between a cache miss and the cache store.
//
// Every request carries the provider's bearer token and runs through a
// resilience.Executor. Server errors and 429s are retried with backoff;
// other 4xx responses fail at once. Non-2xx responses surface as
// *StatusError so callers can inspect the code.
package upstream
