package emitter

import "github.com/prometheus/client_golang/prometheus"

var (
	emittedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "emitter",
		Name:      "requests_emitted_total",
		Help:      "Number of periodic sync requests emitted per provider.",
	}, []string{"provider"})

	emitFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_sync",
		Subsystem: "emitter",
		Name:      "emit_failures_total",
		Help:      "Number of sync request emissions that failed per provider.",
	}, []string{"provider"})
)

func init() {
	prometheus.MustRegister(emittedCounter, emitFailureCounter)
}

func recordEmitted(provider string) {
	emittedCounter.WithLabelValues(provider).Inc()
}

func recordEmitFailure(provider string) {
	emitFailureCounter.WithLabelValues(provider).Inc()
}
