// Package metrics holds the prometheus collectors for skopos. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skopos"

type Metrics struct {
	registry        *prometheus.Registry
	operations      *prometheus.CounterVec
	capabilityTimes *prometheus.HistogramVec
	hashedBytes     prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Exposed operations by outcome.",
		}, []string{"operation", "outcome"}),
		capabilityTimes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_duration_seconds",
			Help:      "Duration of external capability invocations.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"capability", "outcome"}),
		hashedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_hashed_bytes_total",
			Help:      "Bytes read while computing archive content hashes.",
		}),
	}
}

func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveCapability(capability string, d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.capabilityTimes.WithLabelValues(capability, outcome).Observe(d.Seconds())
}

func (m *Metrics) AddHashedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.hashedBytes.Add(float64(n))
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
