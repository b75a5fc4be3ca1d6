// Package ratelimit implements a blocking permit pool with delayed
// release: at most calls permits are out at once, and each permit returns
// to the pool a full period after it was acquired. Over a trailing window
// following a burst this approximates a calls/period throughput bound
// without the bookkeeping of a precise sliding window.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrConfig is returned by New when calls or period is not positive.
var ErrConfig = errors.New("ratelimit: calls and period must both be positive")

// Limiter is a fixed-size permit pool. All methods are safe for
// concurrent use.
type Limiter struct {
	sem    *semaphore.Weighted
	calls  int
	period time.Duration

	// after defaults to time.AfterFunc; tests swap it to fire permit
	// returns deterministically.
	after func(d time.Duration, f func())
}

// New constructs a Limiter admitting at most calls acquisitions per
// period.
func New(calls int, period time.Duration) (*Limiter, error) {
	if calls <= 0 || period <= 0 {
		return nil, fmt.Errorf("%w: calls=%d period=%v", ErrConfig, calls, period)
	}
	return &Limiter{
		sem:    semaphore.NewWeighted(int64(calls)),
		calls:  calls,
		period: period,
		after:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}, nil
}

// Acquire blocks until a permit is available or ctx is done. On success
// the permit is scheduled to return to the pool one period from now on an
// independent timer goroutine; callers never release explicitly. The
// release is fire-and-forget and safe to run after the owning wrapper is
// gone.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.after(l.period, func() { l.sem.Release(1) })
	return nil
}

// Calls returns the configured permit budget.
func (l *Limiter) Calls() int { return l.calls }

// Period returns the configured replenishment window.
func (l *Limiter) Period() time.Duration { return l.period }
