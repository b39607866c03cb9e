package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FocuswithJustin/versefinder/core/refparse"
)

const metricsNamespace = "versefinder"

// Metrics holds the service's prometheus collectors. Each Server owns its own
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	parses        *prometheus.CounterVec
	parseDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	wsConnections prometheus.Gauge
	wsMessages    *prometheus.CounterVec
	historyWrites *prometheus.CounterVec
}

// NewMetrics registers the service collectors plus the Go runtime and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "parses_total",
			Help:      "Transcripts parsed, by detected language and confidence.",
		}, []string{"language", "confidence"}),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent resolving a transcript, including cache lookup.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "parse_cache_lookups_total",
			Help:      "Parse cache lookups, by result.",
		}, []string{"result"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_connections",
			Help:      "Open websocket transcript streams.",
		}),
		wsMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_messages_total",
			Help:      "Websocket messages, by direction and type.",
		}, []string{"direction", "type"}),
		historyWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "history_writes_total",
			Help:      "History records written, by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.parses,
		m.parseDuration,
		m.cacheLookups,
		m.wsConnections,
		m.wsMessages,
		m.historyWrites,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeParse(source string, r refparse.ParsedReference, cacheHit bool, d time.Duration) {
	m.parses.WithLabelValues(string(r.Language), string(r.Confidence)).Inc()
	m.parseDuration.WithLabelValues(source).Observe(d.Seconds())
	result := "miss"
	if cacheHit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) observeHistoryWrite(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.historyWrites.WithLabelValues(outcome).Inc()
}
