// Package metrics exposes supervisor session metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/flowstream/pkg/stream"
)

const namespace = "flowstream"

// Collector records session lifecycle metrics. It implements stream.Observer.
type Collector struct {
	registry *prometheus.Registry

	sessions  *prometheus.CounterVec
	active    prometheus.Gauge
	duration  *prometheus.HistogramVec
	forwarded prometheus.Counter
}

var _ stream.Observer = (*Collector)(nil)

// New registers the session metrics on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Stream sessions by terminal outcome.",
		}, []string{"outcome"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Stream sessions currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of stream sessions by terminal outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
		}, []string{"outcome"}),
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_forwarded_total",
			Help:      "Data events delivered to callers.",
		}),
	}

	c.registry.MustRegister(
		c.sessions,
		c.active,
		c.duration,
		c.forwarded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) SessionStarted(*stream.Session) {
	c.active.Inc()
}

func (c *Collector) EventForwarded(*stream.Session, stream.Event) {
	c.forwarded.Inc()
}

func (c *Collector) SessionEnded(o *stream.Outcome) {
	outcome := o.State.String()
	c.active.Dec()
	c.sessions.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(o.Duration().Seconds())
}
