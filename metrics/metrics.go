// Package metrics records stream outcomes in a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i2y/llmstream/provider"
)

// OutcomeError labels streams that ended through OnError.
const OutcomeError = "error"

// Metrics records stream outcomes in a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	streamsTotal   *prometheus.CounterVec
	durationMs     *prometheus.HistogramVec
	toolCallsTotal *prometheus.CounterVec
}

var _ provider.Observer = (*Metrics)(nil)

// New creates a Metrics with all collectors registered.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		streamsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llmstream_streams_total",
			Help: "Total number of provider streams by terminal outcome.",
		}, []string{"family", "outcome"}),
		durationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llmstream_stream_duration_ms",
			Help:    "Stream duration from call to terminal callback in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
		}, []string{"family", "outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llmstream_tool_calls_total",
			Help: "Total number of tool calls emitted by providers.",
		}, []string{"family", "tool"}),
	}
	r.MustRegister(m.streamsTotal, m.durationMs, m.toolCallsTotal)
	return m
}

// Registry exposes the underlying registry, e.g. for tests or for merging
// into an application's own gatherers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStream implements provider.Observer. The outcome is the stop
// reason, or "error" when the stream failed.
func (m *Metrics) ObserveStream(family provider.Family, stop provider.StopReason, err error, d time.Duration) {
	outcome := string(stop)
	switch {
	case err != nil:
		outcome = OutcomeError
	case outcome == "":
		outcome = "unknown"
	}
	f := family.String()
	m.streamsTotal.WithLabelValues(f, outcome).Inc()
	m.durationMs.WithLabelValues(f, outcome).Observe(float64(d.Milliseconds()))
}

// ObserveToolCall implements provider.Observer.
func (m *Metrics) ObserveToolCall(family provider.Family, name string) {
	m.toolCallsTotal.WithLabelValues(family.String(), name).Inc()
}
