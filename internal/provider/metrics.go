package provider

import "github.com/prometheus/client_golang/prometheus"

var narrowingRetryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "health_sync",
	Subsystem: "provider",
	Name:      "permission_narrowing_retries_total",
	Help:      "Number of aggregate fetch retries issued with a reduced metric type set after a partial permission denial.",
}, []string{"provider"})

func init() {
	prometheus.MustRegister(narrowingRetryCounter)
}

func recordNarrowingRetry(provider string) {
	narrowingRetryCounter.WithLabelValues(provider).Inc()
}
