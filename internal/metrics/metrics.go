// Package metrics exposes proctoring counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/proctor"
)

const namespace = "proctor"

// Metrics implements proctor.Recorder over a private registry.
type Metrics struct {
	registry *prometheus.Registry

	violations  *prometheus.CounterVec
	failures    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	requests    *prometheus.HistogramVec
}

// New creates and registers the proctoring collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Violation events recorded, by kind.",
			},
			[]string{"kind"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detector_failures_total",
				Help:      "Detector calls that failed and were treated as no detection, by signal.",
			},
			[]string{"signal"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session state transitions, by target state.",
			},
			[]string{"state"},
		),
		requests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by method and status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}

	m.registry.MustRegister(
		m.violations,
		m.failures,
		m.transitions,
		m.requests,
		collectors.NewGoCollector(),
	)

	for _, k := range detection.Kinds {
		m.violations.WithLabelValues(string(k))
	}
	return m
}

func (m *Metrics) Violation(kind detection.Kind) {
	m.violations.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) DetectorFailure(signal string) {
	m.failures.WithLabelValues(signal).Inc()
}

func (m *Metrics) Transition(state proctor.State) {
	m.transitions.WithLabelValues(string(state)).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
