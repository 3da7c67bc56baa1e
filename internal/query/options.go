package query

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger for fetch failures and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for fetch and mutation spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Cache) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithDefaultStaleTime sets the stale time used when a query does not set
// one.
func WithDefaultStaleTime(d time.Duration) Option {
	return func(c *Cache) {
		c.staleTime = d
	}
}

// QueryOptions control a single Query call.
type QueryOptions struct {
	// StaleTime is how long a successful result stays fresh. Zero uses the
	// cache default; a negative value treats every entry as stale.
	StaleTime time.Duration

	// Disabled returns the current entry without ever fetching.
	Disabled bool

	// Background serves stale data immediately and refreshes it in the
	// background. Without data the call waits as usual.
	Background bool
}

type loadOptions struct {
	staleTime  time.Duration
	disabled   bool
	background bool
	force      bool
	span       string
}

func (o QueryOptions) load(force bool) loadOptions {
	return loadOptions{
		staleTime:  o.StaleTime,
		disabled:   o.Disabled,
		background: o.Background,
		force:      force,
		span:       "query.fetch",
	}
}
