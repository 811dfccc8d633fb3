// Package health reports the health of a metatools process.
//
// A Checker reports Healthy, Degraded, or Unhealthy. The Aggregator runs
// every registered checker under one deadline and folds the results into an
// overall status. CacheChecker flags provider caches that are close to
// capacity, where LRU eviction starts discarding entries before they expire;
// MemoryChecker watches heap growth.
//
// Mount exposes the aggregator on a chi router:
//
//	r := chi.NewRouter()
//	health.Mount(r, agg)
//	// GET /healthz        liveness, always 200
//	// GET /readyz         200 unless a check is unhealthy
//	// GET /health         JSON report of every check
//	// GET /health/{name}  JSON report of one check
package health
