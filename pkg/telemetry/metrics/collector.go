package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the query engine.
// All record methods are safe on a nil receiver so callers that run
// without metrics configured do not need guards.
type Collector struct {
	registry *prometheus.Registry

	// queriesTotal counts engine queries by domain, path and status.
	queriesTotal *prometheus.CounterVec

	// fallbacksTotal counts fast-to-slow path fallbacks.
	fallbacksTotal *prometheus.CounterVec

	// queryDuration tracks end-to-end query latency per domain.
	queryDuration *prometheus.HistogramVec

	// budgetUtilization tracks current spend over budget per cost center.
	budgetUtilization *prometheus.GaugeVec
}

// Config configures the metrics collector.
type Config struct {
	// Namespace is the metric namespace. Default: "lakewatch".
	Namespace string

	// Subsystem is the metric subsystem. Default: "engine".
	Subsystem string
}

// NewCollector creates a Collector with its own registry.
func NewCollector(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "lakewatch"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "engine"
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "queries_total",
				Help:      "Total queries executed, by domain, path and status.",
			},
			[]string{"domain", "path", "status"},
		),
		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fallbacks_total",
				Help:      "Fast-path failures that fell back to live enumeration.",
			},
			[]string{"domain", "operation"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "query_duration_seconds",
				Help:      "End-to-end query latency in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"domain", "path"},
		),
		budgetUtilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "budget_utilization_ratio",
				Help:      "Spend over budget per cost center. 1.0 means the budget is exhausted.",
			},
			[]string{"dimension", "value"},
		),
	}

	registry.MustRegister(
		c.queriesTotal,
		c.fallbacksTotal,
		c.queryDuration,
		c.budgetUtilization,
	)

	return c
}

// RecordQuery records one completed query.
func (c *Collector) RecordQuery(domain, path, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(domain, path, status).Inc()
	c.queryDuration.WithLabelValues(domain, path).Observe(duration.Seconds())
}

// RecordFallback records one fast-to-slow fallback.
func (c *Collector) RecordFallback(domain, operation string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(domain, operation).Inc()
}

// SetBudgetUtilization records the current utilization of one cost
// center. Unbounded utilization (cost against a zero budget) should be
// reported by the caller as a large sentinel rather than +Inf.
func (c *Collector) SetBudgetUtilization(dimension, value string, utilization float64) {
	if c == nil {
		return
	}
	c.budgetUtilization.WithLabelValues(dimension, value).Set(utilization)
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}
