// Package metrics exports container resolution metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-autodi/framework/container"
)

// Outcome label values besides the container error kinds.
const (
	OutcomeOK    = "ok"
	OutcomeOther = "error"
)

// Collector holds the resolution metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	Resolutions *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewCollector creates the metrics under namespace (e.g. "autodi") and
// registers them, plus the Go and process collectors, on a fresh registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of top-level dependency resolutions",
		},
		[]string{"key", "outcome"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Dependency resolution duration in seconds",
			Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		},
		[]string{"key"},
	)

	registry.MustRegister(
		resolutions,
		duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{registry: registry, Resolutions: resolutions, Duration: duration}
}

// Registry returns the registry the metrics live on.
func (m *Collector) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Plugin records every top-level resolution.
//
//	c.Use(collector.Plugin())
func (m *Collector) Plugin() container.Plugin {
	return container.Timed(func(key container.Key, _ any, err error, elapsed time.Duration) {
		k := key.String()
		m.Resolutions.WithLabelValues(k, Outcome(err)).Inc()
		m.Duration.WithLabelValues(k).Observe(elapsed.Seconds())
	})
}

// Outcome maps a resolution error to its label value: "ok", one of the
// container.Kind names, or "error".
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if kind := container.Kind(err); kind != "" {
		return kind
	}
	return OutcomeOther
}
