// Package cache implements a read-through cache over the shared store handle.
//
// Reads go through GetOrCompute: a hit returns the cached value, a miss runs
// the caller-supplied fetcher and writes the result back in the background.
// Writes against the system of record stay coherent through explicit
// invalidation (point, pattern, and per-entity).
//
// The package inherits the store's fail-open contract: when the store is
// unavailable every read degrades to calling the fetcher directly, and no
// store failure is ever surfaced to the caller. Only fetcher errors propagate.
package cache
