package query

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the query collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "washbook").
	Namespace string

	// Subsystem is the metrics subsystem (default: "query").
	Subsystem string

	// Buckets are the histogram buckets for fetch and mutation durations.
	Buckets []float64

	// Registry receives the collectors (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics holds the Prometheus collectors for a Cache and its mutations.
// A nil *Metrics records nothing.
type Metrics struct {
	fetches          *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	dedup            *prometheus.CounterVec
	hits             *prometheus.CounterVec
	invalidations    prometheus.Counter
	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
}

// NewMetrics registers the query collectors and returns them.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "washbook",
		Subsystem: "query",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)
	return &Metrics{
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fetches_total",
			Help:      "Fetches started by the query cache, by key root and outcome",
		}, []string{"key", "outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Fetch duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"key"}),

		dedup: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "dedup_total",
			Help:      "Queries that attached to a fetch already in flight",
		}, []string{"key"}),

		hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hits_total",
			Help:      "Queries answered from a fresh entry",
		}, []string{"key"}),

		invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "invalidations_total",
			Help:      "Entries marked stale by Invalidate",
		}),

		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "mutations_total",
			Help:      "Mutations run, by name and outcome",
		}, []string{"name", "outcome"}),

		mutationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "mutation_duration_seconds",
			Help:      "Mutation duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"name"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) observeFetch(key Key, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(key.Root(), outcome(err)).Inc()
	m.fetchDuration.WithLabelValues(key.Root()).Observe(d.Seconds())
}

func (m *Metrics) observeDedup(key Key) {
	if m == nil {
		return
	}
	m.dedup.WithLabelValues(key.Root()).Inc()
}

func (m *Metrics) observeHit(key Key) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(key.Root()).Inc()
}

func (m *Metrics) observeInvalidations(n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.Add(float64(n))
}

func (m *Metrics) observeMutation(name string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(name, outcome(err)).Inc()
	m.mutationDuration.WithLabelValues(name).Observe(d.Seconds())
}
