package chain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records RPC latency and outcomes.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the chain gateway metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ons_chain_request_duration_seconds",
			Help:    "Latency of chain RPC requests by endpoint and outcome",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint", "outcome"}),
	}
}

func (m *Metrics) observe(endpoint, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
}
