// Package metrics exposes service operation counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements service.Observer on its own registry.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
}

// NewCollector creates a Collector with the Go runtime and process collectors registered next to
// the ledger metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deposit_ledger_operations_total",
			Help: "Service operations by name and outcome",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deposit_ledger_operation_duration_seconds",
			Help:    "Time taken by a service operation, store round trips included",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deposit_ledger_conflict_retries_total",
			Help: "Transactions re-run after a concurrent update",
		}, []string{"op"}),
	}
}

func (c *Collector) ObserveOperation(op string, duration time.Duration, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
	c.duration.WithLabelValues(op).Observe(duration.Seconds())
}

func (c *Collector) ObserveRetry(op string) {
	c.retries.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
