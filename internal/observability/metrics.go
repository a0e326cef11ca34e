package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment batch activity segmented by execution mode
// and outcome.
type PaymentMetrics struct {
	Batches  *prometheus.CounterVec
	Legs     *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

var (
	paymentOnce     sync.Once
	paymentRegistry *PaymentMetrics
)

// Payments returns the lazily-initialised payment metrics registry.
func Payments() *PaymentMetrics {
	paymentOnce.Do(func() {
		paymentRegistry = &PaymentMetrics{
			Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cognishare",
				Subsystem: "payments",
				Name:      "batches_total",
				Help:      "Payment batches segmented by execution mode and outcome.",
			}, []string{"mode", "outcome"}),
			Legs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cognishare",
				Subsystem: "payments",
				Name:      "legs_total",
				Help:      "Individual payment legs segmented by mode and outcome.",
			}, []string{"mode", "outcome"}),
			Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cognishare",
				Subsystem: "payments",
				Name:      "batch_duration_seconds",
				Help:      "Wall time spent executing one payment batch.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"mode"}),
		}
		prometheus.MustRegister(
			paymentRegistry.Batches,
			paymentRegistry.Legs,
			paymentRegistry.Duration,
		)
	})
	return paymentRegistry
}
