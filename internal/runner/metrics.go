package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the run service's Prometheus collectors.
type Metrics struct {
	RunsTotal   *prometheus.CounterVec
	RunsActive  prometheus.Gauge
	RunDuration *prometheus.HistogramVec
	LogLines    prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clp_runs_total",
			Help: "Finished runs by terminal status",
		}, []string{"status"}),
		RunsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "clp_runs_active",
			Help: "Runs currently executing",
		}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clp_run_duration_seconds",
			Help:    "Wall time of finished runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"status"}),
		LogLines: f.NewCounter(prometheus.CounterOpts{
			Name: "clp_run_log_lines_total",
			Help: "Log lines captured from runs",
		}),
	}
}
