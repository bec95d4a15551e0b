package adapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saintparish4/fedsdn/shared/models"
)

const (
	resultSuccess      = "success"
	resultFailure      = "failure"
	resultError        = "error"
	resultNotInstalled = "not_installed"
)

// Monitor records adapter invocations. A nil *Monitor records nothing.
type Monitor struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMonitor creates the adapter metrics.
func NewMonitor() *Monitor {
	return &Monitor{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedsdn_adapter_invocations_total",
			Help: "Adapter invocations by site type, operation and result.",
		}, []string{"site_type", "operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedsdn_adapter_duration_seconds",
			Help:    "Runtime of adapter processes.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"site_type", "operation"}),
	}
}

func (m *Monitor) observe(kind models.SiteKind, op Operation, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(kind.String(), string(op), result).Inc()
	if result != resultNotInstalled {
		m.duration.WithLabelValues(kind.String(), string(op)).Observe(d.Seconds())
	}
}

// Describe implements prometheus.Collector.
func (m *Monitor) Describe(ch chan<- *prometheus.Desc) {
	m.invocations.Describe(ch)
	m.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Monitor) Collect(ch chan<- prometheus.Metric) {
	m.invocations.Collect(ch)
	m.duration.Collect(ch)
}
