// Package metrics holds the Prometheus collectors exported on /metrics.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mentormirror"

type Metrics struct {
	registry *prometheus.Registry

	analyses           *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	capabilityCalls    *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec
	rewrites           *prometheus.CounterVec
	speechRenders      *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the
// standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_stage_duration_seconds",
			Help:      "Duration of each analysis stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		capabilityCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_calls_total",
			Help:      "Language-model calls by service and outcome.",
		}, []string{"service", "outcome"}),
		capabilityDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_call_duration_seconds",
			Help:      "Language-model call latency by service.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"service"}),
		rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewrites_total",
			Help:      "Rewrite requests by outcome.",
		}, []string{"outcome"}),
		speechRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_renders_total",
			Help:      "Speech render requests by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.analyses,
		m.stageDuration,
		m.capabilityCalls,
		m.capabilityDuration,
		m.rewrites,
		m.speechRenders,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) ObserveAnalysis(err error) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveCapability(service string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.capabilityCalls.WithLabelValues(service, outcome(err)).Inc()
	m.capabilityDuration.WithLabelValues(service).Observe(d.Seconds())
}

func (m *Metrics) ObserveRewrite(err error) {
	if m == nil {
		return
	}
	m.rewrites.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveSpeech(err error) {
	if m == nil {
		return
	}
	m.speechRenders.WithLabelValues(outcome(err)).Inc()
}
