// Package observability holds cross-package Prometheus instruments.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "health_sync",
		Subsystem: "persistence",
		Name:      "last_metric_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent daily metric written to Postgres.",
	})

	syncDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "health_sync",
		Subsystem: "orchestrator",
		Name:      "attempt_duration_seconds",
		Help:      "Wall-clock duration of sync attempts per provider.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(metricPersistGauge, syncDurationHistogram)
}

// RecordMetricPersisted updates the persistence watermark gauge.
func RecordMetricPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	metricPersistGauge.Set(float64(ts.Unix()))
}

// RecordSyncDuration observes one completed attempt's duration.
func RecordSyncDuration(provider string, elapsed time.Duration) {
	syncDurationHistogram.WithLabelValues(provider).Observe(elapsed.Seconds())
}
