// Package metrics defines the Prometheus instrumentation for the
// detection service: business-level detection counters and database
// connection pool gauges.
package metrics

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// DetectionMetrics tracks classification outcomes.
type DetectionMetrics struct {
	DetectionsTotal  *prometheus.CounterVec
	Confidence       prometheus.Histogram
	ClassifyDuration prometheus.Histogram
	FeedbackTotal    *prometheus.CounterVec
}

// NewDetectionMetrics creates and registers detection metrics under the
// given namespace.
func NewDetectionMetrics(namespace string) *DetectionMetrics {
	return &DetectionMetrics{
		DetectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Number of classification runs by verdict and input source.",
		}, []string{"verdict", "source"}),
		Confidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_confidence",
			Help:      "Distribution of reported confidence percentages.",
			Buckets:   prometheus.LinearBuckets(5, 10, 10),
		}),
		ClassifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Time spent in the heuristic classifier.",
			Buckets:   prometheus.DefBuckets,
		}),
		FeedbackTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Number of feedback submissions by agreement.",
		}, []string{"agree"}),
	}
}

// RecordDetection records one classification outcome.
func (m *DetectionMetrics) RecordDetection(verdict, source string, confidence int) {
	m.DetectionsTotal.WithLabelValues(verdict, source).Inc()
	m.Confidence.Observe(float64(confidence))
}

// ObserveClassifyDuration records the classifier runtime, attaching the
// current trace ID as an exemplar when one is available.
func (m *DetectionMetrics) ObserveClassifyDuration(ctx context.Context, seconds float64) {
	if eo, ok := m.ClassifyDuration.(prometheus.ExemplarObserver); ok {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			eo.ObserveWithExemplar(seconds, prometheus.Labels{"trace_id": sc.TraceID().String()})
			return
		}
	}
	m.ClassifyDuration.Observe(seconds)
}

// DatabaseMetrics exposes sql.DBStats as gauges.
type DatabaseMetrics struct {
	OpenConnections prometheus.Gauge
	InUse           prometheus.Gauge
	Idle            prometheus.Gauge
	WaitCount       prometheus.Gauge
}

// NewDatabaseMetrics creates and registers database pool metrics under
// the given namespace.
func NewDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		OpenConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_open_connections",
			Help:      "Open connections in the database pool.",
		}),
		InUse: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_in_use_connections",
			Help:      "Connections currently in use.",
		}),
		Idle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_idle_connections",
			Help:      "Idle connections in the pool.",
		}),
		WaitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_wait_count",
			Help:      "Total connections waited for.",
		}),
	}
}

// UpdateDBStats refreshes the gauges from the connection pool.
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.OpenConnections.Set(float64(stats.OpenConnections))
	m.InUse.Set(float64(stats.InUse))
	m.Idle.Set(float64(stats.Idle))
	m.WaitCount.Set(float64(stats.WaitCount))
}
