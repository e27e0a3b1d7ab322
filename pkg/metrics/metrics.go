// Package metrics provides Prometheus instrumentation for the memory core and HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "emotibot"

// Manager owns a private registry. A disabled Manager accepts every call and records nothing.
type Manager struct {
	registry *prometheus.Registry
	enabled  bool

	// Memory metrics
	recordsAdded      *prometheus.CounterVec
	embeddingDuration *prometheus.HistogramVec
	searchDuration    prometheus.Histogram
	memoryErrors      *prometheus.CounterVec

	// Generation metrics
	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram

	// Emotion metrics
	dominantEmotions *prometheus.CounterVec

	// Session metrics
	activeSessions prometheus.Gauge

	// HTTP metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

type Config struct {
	Enabled bool

	EmbeddingDurationBuckets  []float64
	SearchDurationBuckets     []float64
	GenerationDurationBuckets []float64
	HTTPDurationBuckets       []float64
}

func DefaultConfig() Config {
	return Config{
		Enabled:                   true,
		EmbeddingDurationBuckets:  []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		SearchDurationBuckets:     []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		GenerationDurationBuckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 90},
		HTTPDurationBuckets:       []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}
}

func NewManager(cfg Config) *Manager {
	if !cfg.Enabled {
		return NoOpManager()
	}

	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		enabled:  true,
	}

	m.initMemoryMetrics(cfg)
	m.initGenerationMetrics(cfg)
	m.initHTTPMetrics(cfg)

	return m
}

// NoOpManager returns a manager for when metrics are disabled.
func NoOpManager() *Manager {
	return &Manager{enabled: false}
}

func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if !m.Enabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
