package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initGenerationMetrics(cfg Config) {
	m.generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of response generations by status",
		},
		[]string{"status"},
	)

	m.generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of response generation in seconds",
			Buckets:   cfg.GenerationDurationBuckets,
		},
	)

	m.registry.MustRegister(m.generations)
	m.registry.MustRegister(m.generationDuration)
}

// RecordGeneration records one generation attempt. Status is "success", "fallback" or "unconfigured".
func (m *Manager) RecordGeneration(status string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.generations.WithLabelValues(status).Inc()
	m.generationDuration.Observe(duration.Seconds())
}
