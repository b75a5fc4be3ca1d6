package memoize

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidMaxSize is returned by Wrap for a negative max size.
	ErrInvalidMaxSize = errors.New("memoize: max size must be >= 0")

	// ErrInvalidTTL is returned by Wrap for a non-positive TTL.
	ErrInvalidTTL = errors.New("memoize: ttl must be positive")

	// ErrRateLimitConfig is returned by Wrap when calls/period are
	// configured inconsistently.
	ErrRateLimitConfig = errors.New("memoize: calls and period must both be provided, and both positive")

	// ErrNilFunc is returned by Wrap for a nil callable.
	ErrNilFunc = errors.New("memoize: nil function")
)

type config struct {
	maxSize    int
	maxSizeSet bool
	typed      bool
	ttl        time.Duration
	ttlSet     bool
	calls      int
	period     time.Duration
	aware      bool
	metrics    Metrics
}

func defaultConfig() config {
	return config{metrics: NoopMetrics{}}
}

// capacity maps the configured max size to the store's internal
// representation: -1 when the option was omitted (unbounded).
func (c *config) capacity() int {
	if !c.maxSizeSet {
		return -1
	}
	return c.maxSize
}

// validate reports the first configuration error. All validation happens
// at Wrap time; a wrapper is never usable in a broken configuration.
func (c *config) validate() error {
	if c.maxSizeSet && c.maxSize < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxSize, c.maxSize)
	}
	if c.ttlSet && c.ttl <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTTL, c.ttl)
	}
	if (c.calls != 0) != (c.period != 0) {
		return fmt.Errorf("%w: calls=%d period=%v", ErrRateLimitConfig, c.calls, c.period)
	}
	if c.calls < 0 || c.period < 0 {
		return fmt.Errorf("%w: calls=%d period=%v", ErrRateLimitConfig, c.calls, c.period)
	}
	return nil
}

// Option configures a wrapper at Wrap time.
type Option func(*config)

// WithMaxSize bounds the cache to n entries, evicting the least recently
// used entry when full. n == 0 disables caching entirely: every call
// invokes the function and counts a miss. Omitting the option leaves the
// cache unbounded.
func WithMaxSize(n int) Option {
	return func(c *config) {
		c.maxSize = n
		c.maxSizeSet = true
	}
}

// WithTyped caches arguments of different types separately: f(3) and
// f(3.0) become distinct entries with distinct results.
func WithTyped() Option {
	return func(c *config) { c.typed = true }
}

// WithTTL expires each cached entry d after insertion. The deadline is
// fixed at insertion; hits do not extend it. A non-positive d is a
// configuration error; omit the option to disable expiration.
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		c.ttl = d
		c.ttlSet = true
	}
}

// WithRateLimit bounds admitted calls to at most calls per period.
// Permits return to the pool a full period after acquisition, so the
// bound is a delayed-release approximation, not a sliding window. Both
// values must be positive; providing one without the other is a
// configuration error.
func WithRateLimit(calls int, period time.Duration) Option {
	return func(c *config) {
		c.calls = calls
		c.period = period
	}
}

// WithAware decouples cache hits from the rate-limit budget: a permit is
// consumed only when the wrapped function actually runs. Meaningful only
// together with WithRateLimit; ignored otherwise.
func WithAware() Option {
	return func(c *config) { c.aware = true }
}

// WithMetrics installs observability hooks. Nil restores NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *config) {
		if m == nil {
			m = NoopMetrics{}
		}
		c.metrics = m
	}
}
