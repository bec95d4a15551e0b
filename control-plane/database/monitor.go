package database

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type monitor struct {
	// How long store operations take, by backend, table and operation.
	operationTimer *prometheus.HistogramVec
	// Operations that ended in an error other than not-found or conflict.
	operationErrors *prometheus.CounterVec
}

func newMonitor() *monitor {
	return &monitor{
		operationTimer: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedsdn_store_operation_duration_seconds",
			Help:    "Duration of entity store operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "table", "operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedsdn_store_operation_errors_total",
			Help: "Total number of failed entity store operations",
		}, []string{"backend", "table", "operation"}),
	}
}

func (m *monitor) observe(backend, table, op string, d time.Duration, err error) {
	m.operationTimer.WithLabelValues(backend, table, op).Observe(d.Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
		m.operationErrors.WithLabelValues(backend, table, op).Inc()
	}
}

func (m *monitor) Describe(ch chan<- *prometheus.Desc) {
	m.operationTimer.Describe(ch)
	m.operationErrors.Describe(ch)
}

func (m *monitor) Collect(ch chan<- prometheus.Metric) {
	m.operationTimer.Collect(ch)
	m.operationErrors.Collect(ch)
}
