package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		calls  int
		period time.Duration
	}{
		{0, time.Second},
		{-1, time.Second},
		{5, 0},
		{5, -time.Second},
		{0, 0},
	} {
		_, err := New(tc.calls, tc.period)
		assert.ErrorIs(t, err, ErrConfig, "calls=%d period=%v", tc.calls, tc.period)
	}

	l, err := New(3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Calls())
	assert.Equal(t, time.Second, l.Period())
}

// releaseRecorder replaces the limiter's timer factory so permit returns
// fire only when the test says so.
type releaseRecorder struct {
	mu       sync.Mutex
	releases []func()
}

func (r *releaseRecorder) after(_ time.Duration, f func()) {
	r.mu.Lock()
	r.releases = append(r.releases, f)
	r.mu.Unlock()
}

func (r *releaseRecorder) fire(i int) {
	r.mu.Lock()
	f := r.releases[i]
	r.mu.Unlock()
	f()
}

func TestAcquire_UpToBudget(t *testing.T) {
	t.Parallel()

	l, err := New(3, time.Hour)
	require.NoError(t, err)
	rec := &releaseRecorder{}
	l.after = rec.after

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	// Budget exhausted: the next acquisition must not be admitted.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.DeadlineExceeded)
}

func TestAcquire_UnblocksOnRelease(t *testing.T) {
	t.Parallel()

	l, err := New(1, time.Hour)
	require.NoError(t, err)
	rec := &releaseRecorder{}
	l.after = rec.after

	require.NoError(t, l.Acquire(context.Background()))

	done := make(chan error, 1)
	go func() { done <- l.Acquire(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("second Acquire must block, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	rec.fire(0) // return the first permit

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released after permit return")
	}
}

func TestAcquire_ContextCancel(t *testing.T) {
	t.Parallel()

	l, err := New(1, time.Hour)
	require.NoError(t, err)
	rec := &releaseRecorder{}
	l.after = rec.after

	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter did not return")
	}
}

// End to end with real timers: a full budget drains back roughly one
// period after the burst began.
func TestAcquire_DelayedRelease(t *testing.T) {
	t.Parallel()

	const period = 150 * time.Millisecond
	l, err := New(2, period)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background())) // waits for the first return
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, period-30*time.Millisecond,
		"third acquisition must wait out the period")
}
