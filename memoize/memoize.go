package memoize

import (
	"context"

	"github.com/IvanBrykalov/memoize/ratelimit"
)

// Fn is a wrapped callable: opaque, possibly side-effecting, possibly
// failing. Arguments are the positional values followed by any NamedArg
// values; the function receives them exactly as passed to Call.
type Fn[V any] func(args ...any) (V, error)

// Stats is a point-in-time snapshot of a wrapper's cache.
type Stats struct {
	Hits   int64
	Misses int64
	// MaxSize is the configured capacity; -1 when unbounded.
	MaxSize int
	// Size is the current number of cached entries.
	Size int
}

// Memo is a memoizing wrapper around one callable. All methods are safe
// for concurrent use by multiple goroutines; the callable itself may run
// concurrently for different (or even the same) arguments.
type Memo[V any] struct {
	fn      Fn[V]
	st      *store[V]
	exp     *expirer[V]        // nil when no TTL is configured
	lim     *ratelimit.Limiter // nil when rate limiting is off
	typed   bool
	aware   bool
	maxSize int // -1 = unbounded
}

// Wrap builds a memoizing wrapper for fn. All configuration validation
// happens here; Call never fails due to configuration.
func Wrap[V any](fn Fn[V], opts ...Option) (*Memo[V], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Memo[V]{
		fn:      fn,
		st:      newStore[V](cfg.capacity(), cfg.metrics),
		typed:   cfg.typed,
		maxSize: cfg.capacity(),
	}
	if cfg.ttl > 0 {
		m.exp = newExpirer(cfg.ttl, m.st)
	}
	if cfg.calls > 0 {
		lim, err := ratelimit.New(cfg.calls, cfg.period)
		if err != nil {
			return nil, err
		}
		m.lim = lim
		m.aware = cfg.aware
	}
	return m, nil
}

// MustWrap is Wrap that panics on a configuration error.
func MustWrap[V any](fn Fn[V], opts ...Option) *Memo[V] {
	m, err := Wrap(fn, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Call invokes the wrapped function, returning a cached result when one
// exists for the given arguments. Comparable arguments key by value,
// pointers and channels by identity, and fmt.Stringer values by type and
// String output; other argument types fail with ErrUnhashable. The only
// point at which Call can block besides the function itself is permit
// acquisition, which waits indefinitely for a free slot.
func (m *Memo[V]) Call(args ...any) (V, error) {
	return m.CallContext(context.Background(), args...)
}

// CallContext is Call with a context bounding the permit wait. The
// context does not cancel the wrapped function once it is running.
func (m *Memo[V]) CallContext(ctx context.Context, args ...any) (V, error) {
	var zero V

	// Caching disabled: no key, no lookup, just the call and a miss.
	if m.maxSize == 0 {
		if m.lim != nil {
			if err := m.lim.Acquire(ctx); err != nil {
				return zero, err
			}
		}
		v, err := m.fn(args...)
		if err != nil {
			return zero, err
		}
		m.st.miss()
		return v, nil
	}

	// Non-aware limiting charges every call, hit or miss, up front.
	if m.lim != nil && !m.aware {
		if err := m.lim.Acquire(ctx); err != nil {
			return zero, err
		}
	}

	key, err := makeKey(args, m.typed)
	if err != nil {
		return zero, err
	}
	if v, ok := m.st.get(key); ok {
		return v, nil
	}

	// Aware limiting charges only when the function is about to run.
	if m.lim != nil && m.aware {
		if err := m.lim.Acquire(ctx); err != nil {
			return zero, err
		}
	}

	// The function runs outside the store lock, so a concurrent caller
	// may compute the same key; put resolves that as first-writer-wins
	// and each caller returns its own result.
	v, err := m.fn(args...)
	if err != nil {
		// Failures are never cached and no timer is armed.
		return zero, err
	}
	if ref, inserted := m.st.put(key, v); inserted && m.exp != nil {
		m.exp.schedule(ref)
	}
	return v, nil
}

// Stats reports hit and miss counts, the configured capacity, and the
// current entry count.
func (m *Memo[V]) Stats() Stats {
	st := m.st.snapshot()
	st.MaxSize = m.maxSize
	return st
}

// Reset clears the cache and zeroes both counters. Entries removed by
// Reset simply vanish; pending expirations become no-ops.
func (m *Memo[V]) Reset() {
	m.st.clear()
}
