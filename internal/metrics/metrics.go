// Package metrics exposes Prometheus metrics for the pattern engine and the
// web surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"libdb.so/strobbie/internal/pattern"
)

var (
	buckets = []float64{.0001, .0005, .001, .005, .01, .05, .1}
)

var _ prometheus.Collector = (*Metrics)(nil)

// Metrics holds every collector. It is registered as a single collector.
type Metrics struct {
	activations    *prometheus.CounterVec
	flushes        *prometheus.CounterVec
	faults         *prometheus.CounterVec
	ticks          prometheus.Counter
	serverCounter  *prometheus.CounterVec
	serverDuration *prometheus.HistogramVec
}

// New creates the collectors.
func New() *Metrics {
	return &Metrics{
		activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strobbie_pattern_activations_total",
				Help: "Number of times a pattern became active.",
			},
			[]string{"pattern"},
		),

		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strobbie_strip_flushes_total",
				Help: "Number of frames pushed to the strip.",
			},
			[]string{"pattern", "result"},
		),

		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strobbie_pattern_faults_total",
				Help: "Number of times a pattern failed while rendering.",
			},
			[]string{"pattern"},
		),

		ticks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "strobbie_engine_ticks_total",
				Help: "Number of control loop iterations.",
			},
		),

		serverCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strobbie_http_requests_total",
				Help: "A counter for requests to the web interface.",
			},
			[]string{"code", "method"},
		),

		serverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strobbie_http_request_duration_seconds",
				Help:    "A histogram of latencies for requests to the web interface.",
				Buckets: buckets,
			},
			[]string{"code", "method"},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.activations.Describe(ch)
	m.flushes.Describe(ch)
	m.faults.Describe(ch)
	m.ticks.Describe(ch)
	m.serverCounter.Describe(ch)
	m.serverDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.activations.Collect(ch)
	m.flushes.Collect(ch)
	m.faults.Collect(ch)
	m.ticks.Collect(ch)
	m.serverCounter.Collect(ch)
	m.serverDuration.Collect(ch)
}

// EngineHooks returns engine hooks that record pattern activity.
func (m *Metrics) EngineHooks() pattern.Hooks {
	return pattern.Hooks{
		Activated: func(name pattern.Name) {
			m.activations.WithLabelValues(string(name)).Inc()
		},
		Flushed: func(name pattern.Name, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.flushes.WithLabelValues(string(name), result).Inc()
		},
		Faulted: func(name pattern.Name) {
			m.faults.WithLabelValues(string(name)).Inc()
		},
	}
}

// Tick records one control loop iteration.
func (m *Metrics) Tick() {
	m.ticks.Inc()
}

// ServerMiddleware instruments an HTTP handler.
func (m *Metrics) ServerMiddleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.serverCounter,
		promhttp.InstrumentHandlerDuration(m.serverDuration,
			next,
		),
	)
}

// Handler returns the scrape handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
