package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors the engine counters for Prometheus scraping. The engine's
// lock-committed counters stay authoritative; these exist for dashboards.
type Metrics struct {
	ReadingsTotal  prometheus.Counter
	AnomaliesTotal *prometheus.CounterVec
	DroppedTotal   prometheus.Counter
	ProcessingTime prometheus.Histogram
}

// NewMetrics builds and registers the engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telematics_readings_total",
			Help: "Total telemetry samples processed.",
		}),
		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telematics_anomalies_total",
			Help: "Total anomalies detected, by kind.",
		}, []string{"kind"}),
		DroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telematics_samples_dropped_total",
			Help: "Samples dropped before processing (invalid payload).",
		}),
		ProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "telematics_processing_seconds",
			Help:    "Wall time spent in a single ingest pass.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
	}
	reg.MustRegister(m.ReadingsTotal, m.AnomaliesTotal, m.DroppedTotal, m.ProcessingTime)
	return m
}
