package memoize

import (
	"sync"

	"github.com/IvanBrykalov/memoize/internal/util"
)

// sentinelIdx is the arena slot anchoring the circular recency list.
// It never holds data; sentinel.prev is the newest entry, sentinel.next
// the oldest.
const sentinelIdx = int32(0)

// entry is one arena slot. Entries link to each other by index rather
// than by pointer, so a slot can be reused in place on eviction without
// touching the rest of the list.
type entry[V any] struct {
	key  Key
	val  V
	prev int32
	next int32

	// gen identifies the entry instance occupying this slot. It is bumped
	// on every reuse and release, so a deferred removal holding an old
	// generation can never delete a later entry in the same slot.
	gen uint64
}

// entryRef identifies one entry instance: the store epoch at insertion
// time, the arena slot, and the slot generation. Deferred removals act
// only when all three still match.
type entryRef struct {
	epoch uint64
	idx   int32
	gen   uint64
}

// store is the bounded recency-ordered key/value store. A map gives O(1)
// lookup by key; the arena-backed circular list maintains recency order
// with O(1) link fixes. All mutations happen under mu; the wrapped
// callable never runs while it is held.
type store[V any] struct {
	// ---- guarded by mu ----
	mu    sync.Mutex
	m     map[Key]int32
	arena []entry[V]
	free  []int32
	cap   int // -1 = unbounded, 0 = caching disabled, > 0 = bounded
	full  bool
	epoch uint64 // bumped on clear; invalidates all outstanding refs

	metrics Metrics

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

func newStore[V any](capacity int, m Metrics) *store[V] {
	s := &store[V]{
		m:       make(map[Key]int32),
		cap:     capacity,
		metrics: m,
	}
	s.arena = make([]entry[V], 1, 8) // slot 0 = sentinel, self-linked
	return s
}

// get returns the value for k and promotes the entry to the newest
// position. A miss returns !ok without touching the miss counter; misses
// are counted when the computed result is stored.
func (s *store[V]) get(k Key) (V, bool) {
	s.mu.Lock()
	idx, ok := s.m[k]
	if !ok {
		s.mu.Unlock()
		var zero V
		return zero, false
	}
	s.moveToNewest(idx)
	v := s.arena[idx].val
	s.mu.Unlock()

	s.hits.Add(1)
	s.metrics.Hit()
	return v, true
}

// put stores the computed value for k and counts a miss. If k is already
// present — two callers can miss on the same key concurrently because the
// callable runs outside the lock — the existing entry wins and put only
// counts the miss; the caller returns its own computed value. At capacity
// the oldest entry's slot is reused in place for the new key/value.
// The returned ref is valid only when inserted is true.
func (s *store[V]) put(k Key, v V) (ref entryRef, inserted bool) {
	s.misses.Add(1)
	s.metrics.Miss()

	if s.cap == 0 {
		return entryRef{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[k]; ok {
		// First writer wins.
		return entryRef{}, false
	}

	var idx int32
	if s.cap > 0 && s.full {
		// Reuse the oldest slot in place: new key/value, next generation.
		idx = s.arena[sentinelIdx].next
		e := &s.arena[idx]
		delete(s.m, e.key)
		e.key, e.val = k, v
		e.gen++
		s.unlink(idx)
		s.linkNewest(idx)
		s.metrics.Evict(EvictCapacity)
	} else {
		idx = s.alloc()
		e := &s.arena[idx]
		e.key, e.val = k, v
		e.gen++
		s.linkNewest(idx)
		if s.cap > 0 && len(s.m)+1 >= s.cap {
			s.full = true
		}
	}
	s.m[k] = idx
	s.metrics.Size(len(s.m))
	return entryRef{epoch: s.epoch, idx: idx, gen: s.arena[idx].gen}, true
}

// removeExpired deletes the entry identified by ref, by identity rather
// than by key. It is a harmless no-op when the entry is already gone:
// evicted, cleared, or replaced by a later entry in the same slot.
func (s *store[V]) removeExpired(ref entryRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref.epoch != s.epoch || int(ref.idx) >= len(s.arena) {
		return
	}
	e := &s.arena[ref.idx]
	if e.gen != ref.gen {
		return
	}
	delete(s.m, e.key)
	s.unlink(ref.idx)
	s.release(ref.idx)
	if s.cap > 0 && len(s.m) < s.cap {
		s.full = false
	}
	s.metrics.Evict(EvictTTL)
	s.metrics.Size(len(s.m))
}

// miss counts a miss without touching the map. Used on the caching-
// disabled path, which never builds a key.
func (s *store[V]) miss() {
	s.misses.Add(1)
	s.metrics.Miss()
}

// clear empties the store and zeroes both counters. Outstanding deferred
// removals are invalidated by the epoch bump.
func (s *store[V]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.m = make(map[Key]int32)
	s.arena = make([]entry[V], 1, 8)
	s.free = nil
	s.full = false
	s.hits.Store(0)
	s.misses.Store(0)
	s.metrics.Size(0)
}

// snapshot reports hit/miss counters and the current entry count.
func (s *store[V]) snapshot() Stats {
	s.mu.Lock()
	n := len(s.m)
	s.mu.Unlock()
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   n,
	}
}

// -------------------- internals (mu held) --------------------

// alloc returns a free arena slot, growing the arena when none is
// recycled. Slot generations survive recycling.
func (s *store[V]) alloc() int32 {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		return idx
	}
	s.arena = append(s.arena, entry[V]{})
	return int32(len(s.arena) - 1)
}

// release invalidates the slot's generation, drops value references, and
// recycles the index.
func (s *store[V]) release(idx int32) {
	e := &s.arena[idx]
	e.gen++
	e.key = Key{}
	var zero V
	e.val = zero
	s.free = append(s.free, idx)
}

// unlink detaches the slot from the recency list in O(1).
func (s *store[V]) unlink(idx int32) {
	prev, next := s.arena[idx].prev, s.arena[idx].next
	s.arena[prev].next = next
	s.arena[next].prev = prev
}

// linkNewest inserts the slot immediately before the sentinel, at the
// newest position, in O(1).
func (s *store[V]) linkNewest(idx int32) {
	last := s.arena[sentinelIdx].prev
	s.arena[idx].prev = last
	s.arena[idx].next = sentinelIdx
	s.arena[last].next = idx
	s.arena[sentinelIdx].prev = idx
}

// moveToNewest promotes the slot to the newest position.
func (s *store[V]) moveToNewest(idx int32) {
	if s.arena[sentinelIdx].prev == idx {
		return
	}
	s.unlink(idx)
	s.linkNewest(idx)
}
