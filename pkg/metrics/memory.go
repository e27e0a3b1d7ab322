package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initMemoryMetrics(cfg Config) {
	m.recordsAdded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_records_added_total",
			Help:      "Total number of records written to the memory collection by kind",
		},
		[]string{"kind"},
	)

	m.embeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Duration of embedding requests in seconds",
			Buckets:   cfg.EmbeddingDurationBuckets,
		},
		[]string{"status"},
	)

	m.searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memory_search_duration_seconds",
			Help:      "Duration of similarity searches in seconds, embedding included",
			Buckets:   cfg.SearchDurationBuckets,
		},
	)

	m.memoryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_errors_total",
			Help:      "Total number of failed memory operations",
		},
		[]string{"operation"},
	)

	m.dominantEmotions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dominant_emotion_total",
			Help:      "Total number of scored messages by dominant emotion",
		},
		[]string{"emotion"},
	)

	m.activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Current number of conversation sessions held in memory",
		},
	)

	m.registry.MustRegister(m.recordsAdded)
	m.registry.MustRegister(m.embeddingDuration)
	m.registry.MustRegister(m.searchDuration)
	m.registry.MustRegister(m.memoryErrors)
	m.registry.MustRegister(m.dominantEmotions)
	m.registry.MustRegister(m.activeSessions)
}

// RecordRecordsAdded records n records of the given kind written in one batch.
func (m *Manager) RecordRecordsAdded(kind string, n int) {
	if !m.Enabled() {
		return
	}
	m.recordsAdded.WithLabelValues(kind).Add(float64(n))
}

func (m *Manager) RecordEmbedding(status string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.embeddingDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Manager) RecordSearch(duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.searchDuration.Observe(duration.Seconds())
}

// RecordMemoryError counts a failed operation such as "add_document" or "search".
func (m *Manager) RecordMemoryError(operation string) {
	if !m.Enabled() {
		return
	}
	m.memoryErrors.WithLabelValues(operation).Inc()
}

func (m *Manager) RecordDominantEmotion(emotion string) {
	if !m.Enabled() {
		return
	}
	m.dominantEmotions.WithLabelValues(emotion).Inc()
}

func (m *Manager) SetActiveSessions(n int) {
	if !m.Enabled() {
		return
	}
	m.activeSessions.Set(float64(n))
}
