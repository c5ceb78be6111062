package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "advisor",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Latency of upstream signal provider calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advisor",
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Failed upstream signal provider calls",
		},
		[]string{"provider"},
	)
)

// Register adds the provider collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProviderLatency, ProviderErrors)
	})
}

// ObserveProvider records one provider call.
func ObserveProvider(provider string, start time.Time, err error) {
	ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		ProviderErrors.WithLabelValues(provider).Inc()
	}
}
