// Package memoize provides a memoizing wrapper over an arbitrary
// callable: a bounded, recency-ordered cache of call results with
// per-entry time-based expiration and an optional call-rate limiter.
//
// Design
//
//   - Keys: call arguments (positional values plus optional NamedArg
//     keyword-style values in call-site order) are folded into one
//     canonical comparable Key. Keyword order is significant:
//     Named("x",1), Named("y",2) and Named("y",2), Named("x",1) are
//     distinct keys. WithTyped additionally separates equal values of
//     different types, so f(3) and f(3.0) become distinct entries.
//     Comparable values key by value, pointers and channels by identity,
//     and fmt.Stringer implementations by type plus String output (even
//     when the underlying type is not comparable); anything else fails
//     with ErrUnhashable.
//
//   - Storage: a map gives O(1) lookup into an arena of entries linked
//     into a circular recency list anchored at a sentinel slot. Eviction
//     reuses the oldest entry's slot in place; all operations are O(1).
//
//   - Concurrency: one mutex guards the map and list, held only for link
//     fixes and counters — never while the wrapped function runs. Two
//     callers may therefore miss on the same key concurrently; the first
//     result stored wins cache residency and both count a miss. This is
//     deliberate: there is no run-once guarantee under contention.
//
//   - TTL: WithTTL arms one deferred removal per inserted entry, scoped
//     to that entry instance. Hits never extend the deadline. A removal
//     that fires after its entry is already gone is a harmless no-op.
//
//   - Rate limiting: WithRateLimit(calls, period) admits at most calls
//     concurrent permits, each returning to the pool a full period after
//     acquisition (see package ratelimit). WithAware charges the budget
//     only on actual function executions; cache hits stay free.
//
//   - Metrics: WithMetrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is the default; metrics/prom exports to Prometheus.
//
// Basic usage
//
//	square := memoize.MustWrap(func(args ...any) (int, error) {
//	    n := args[0].(int)
//	    return n * n, nil
//	}, memoize.WithMaxSize(128))
//
//	v, _ := square.Call(12) // computes
//	v, _ = square.Call(12)  // cached
//	fmt.Println(v, square.Stats())
//
// With expiration
//
//	m := memoize.MustWrap(lookup, memoize.WithTTL(200*time.Millisecond))
//	m.Call("key")                      // computes and caches
//	time.Sleep(300 * time.Millisecond) // entry expires
//	m.Call("key")                      // computes again
//
// With an execution-aware rate limit
//
//	m := memoize.MustWrap(fetch,
//	    memoize.WithMaxSize(1024),
//	    memoize.WithRateLimit(10, time.Second),
//	    memoize.WithAware(), // hits never consume a permit
//	)
//
// Statistics & reset
//
// Stats returns (hits, misses, max size, current size); Reset clears the
// cache and zeroes both counters. MaxSize is -1 for an unbounded cache.
//
// Thread-safety & complexity
//
// All methods on Memo are safe for concurrent use. A call costs one map
// access plus a constant number of index fixes under the lock; the only
// blocking point besides the wrapped function is permit acquisition.
package memoize
