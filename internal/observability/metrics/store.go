// Package metrics provides store metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics contains Prometheus metrics for collection persistence.
// A nil *StoreMetrics is valid and records nothing.
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesWritten      *prometheus.CounterVec
	lockWait          *prometheus.HistogramVec
}

// NewStoreMetrics creates and registers store metrics
func NewStoreMetrics(registry *prometheus.Registry) (*StoreMetrics, error) {
	m := &StoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StoreMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of collection load and save operations",
		},
		[]string{"backend", "operation", "collection", "status"}, // status: success, error, not_found
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Time taken to load or save a collection",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15), // 100µs to ~1.6s
		},
		[]string{"backend", "operation", "collection"},
	)

	m.bytesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_bytes_written_total",
			Help: "Bytes written per collection",
		},
		[]string{"backend", "collection"},
	)

	m.lockWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_lock_wait_seconds",
			Help:    "Time spent waiting for the store gate",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12),
		},
		[]string{"backend", "lock_mode"},
	)
}

// Describe implements prometheus.Collector
func (m *StoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.bytesWritten.Describe(ch)
	m.lockWait.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *StoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.bytesWritten.Collect(ch)
	m.lockWait.Collect(ch)
}

// RecordOperation records one load or save
func (m *StoreMetrics) RecordOperation(backend, operation, collection, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(backend, operation, collection, status).Inc()
	m.operationDuration.WithLabelValues(backend, operation, collection).Observe(duration.Seconds())
}

// RecordBytesWritten adds n bytes to the collection's write counter
func (m *StoreMetrics) RecordBytesWritten(backend, collection string, n int) {
	if m == nil {
		return
	}
	m.bytesWritten.WithLabelValues(backend, collection).Add(float64(n))
}

// RecordLockWait records time spent acquiring the store gate
func (m *StoreMetrics) RecordLockWait(backend, lockMode string, wait time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(backend, lockMode).Observe(wait.Seconds())
}
