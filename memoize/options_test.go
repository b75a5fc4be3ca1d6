package memoize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_Validation(t *testing.T) {
	t.Parallel()

	ok := func(args ...any) (int, error) { return 0, nil }

	cases := []struct {
		name    string
		fn      Fn[int]
		opts    []Option
		wantErr error
	}{
		{name: "nil function", fn: nil, wantErr: ErrNilFunc},
		{name: "negative maxsize", fn: ok, opts: []Option{WithMaxSize(-1)}, wantErr: ErrInvalidMaxSize},
		{name: "zero ttl", fn: ok, opts: []Option{WithTTL(0)}, wantErr: ErrInvalidTTL},
		{name: "negative ttl", fn: ok, opts: []Option{WithTTL(-time.Second)}, wantErr: ErrInvalidTTL},
		{name: "calls without period", fn: ok, opts: []Option{WithRateLimit(5, 0)}, wantErr: ErrRateLimitConfig},
		{name: "period without calls", fn: ok, opts: []Option{WithRateLimit(0, time.Second)}, wantErr: ErrRateLimitConfig},
		{name: "negative calls", fn: ok, opts: []Option{WithRateLimit(-1, time.Second)}, wantErr: ErrRateLimitConfig},
		{name: "negative period", fn: ok, opts: []Option{WithRateLimit(5, -time.Second)}, wantErr: ErrRateLimitConfig},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Wrap(tc.fn, tc.opts...)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestWrap_ValidConfigurations(t *testing.T) {
	t.Parallel()

	ok := func(args ...any) (int, error) { return 0, nil }

	valid := [][]Option{
		nil,
		{WithMaxSize(0)},
		{WithMaxSize(128)},
		{WithTyped()},
		{WithTTL(time.Second)},
		{WithRateLimit(10, time.Second)},
		{WithRateLimit(10, time.Second), WithAware()},
		// Aware without a rate limit is meaningless but not an error.
		{WithAware()},
		{WithMetrics(nil)},
		{WithMaxSize(8), WithTyped(), WithTTL(time.Minute), WithRateLimit(3, time.Second), WithAware()},
	}
	for _, opts := range valid {
		m, err := Wrap(ok, opts...)
		require.NoError(t, err)
		require.NotNil(t, m)
	}
}

// The TTL validation error names the duration the caller passed, not an
// internal sentinel.
func TestWrap_TTLErrorReportsValue(t *testing.T) {
	t.Parallel()

	ok := func(args ...any) (int, error) { return 0, nil }

	_, err := Wrap(ok, WithTTL(-5*time.Second))
	require.ErrorIs(t, err, ErrInvalidTTL)
	assert.Contains(t, err.Error(), "-5s")

	_, err = Wrap(ok, WithTTL(0))
	require.ErrorIs(t, err, ErrInvalidTTL)
	assert.Contains(t, err.Error(), "0s")
}

func TestWrap_MaxSizeReporting(t *testing.T) {
	t.Parallel()

	ok := func(args ...any) (int, error) { return 0, nil }

	m := MustWrap(ok)
	assert.Equal(t, -1, m.Stats().MaxSize, "omitted maxsize reports unbounded")

	m = MustWrap(ok, WithMaxSize(7))
	assert.Equal(t, 7, m.Stats().MaxSize)

	m = MustWrap(ok, WithMaxSize(0))
	assert.Equal(t, 0, m.Stats().MaxSize)
}

func TestMustWrap_PanicsOnBadConfig(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustWrap(func(args ...any) (int, error) { return 0, nil }, WithMaxSize(-3))
	})
}
