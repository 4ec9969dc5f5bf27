package consumer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guddu1cse/health-sync-engine/internal/domain"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Number of Kafka messages successfully handled.",
	}, []string{"topic"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors per topic.",
	}, []string{"topic"})

	malformedEventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "malformed_events_total",
		Help:      "Number of undecodable sync events committed without processing.",
	}, []string{"topic"})

	syncOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "sync_attempts_total",
		Help:      "Sync attempts grouped by provider and outcome.",
	}, []string{"provider", "outcome"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "health_sync",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, malformedEventCounter, syncOutcomeCounter, lastMessageGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(topic string) {
	handlerErrorCounter.WithLabelValues(topic).Inc()
}

func recordMalformedEvent(topic string) {
	malformedEventCounter.WithLabelValues(topic).Inc()
}

func recordSyncOutcome(provider string, outcome domain.SyncOutcome) {
	syncOutcomeCounter.WithLabelValues(provider, string(outcome)).Inc()
}
