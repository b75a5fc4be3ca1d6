package memoize

import "time"

// expirer schedules one deferred removal per inserted entry. Each timer
// is independent and fire-and-forget: it runs on its own goroutine, takes
// the store lock only for the removal itself, and is a no-op if the entry
// was already evicted, cleared, or replaced. Nothing cancels a timer
// early; a late fire is harmless.
type expirer[V any] struct {
	ttl time.Duration
	st  *store[V]

	// after defaults to time.AfterFunc; tests swap it to fire removals
	// deterministically.
	after func(d time.Duration, f func())
}

func newExpirer[V any](ttl time.Duration, st *store[V]) *expirer[V] {
	return &expirer[V]{
		ttl:   ttl,
		st:    st,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// schedule arms the removal for one freshly inserted entry. The TTL runs
// from insertion; hits do not refresh it.
func (e *expirer[V]) schedule(ref entryRef) {
	e.after(e.ttl, func() { e.st.removeExpired(ref) })
}
