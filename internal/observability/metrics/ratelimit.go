// Package metrics provides rate limiter metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/learnforge/trainingportal/internal/logger"
)

// RateLimitMetrics contains Prometheus metrics for the sliding-window limiter.
// A nil *RateLimitMetrics is valid and records nothing.
type RateLimitMetrics struct {
	decisionsTotal    *prometheus.CounterVec
	trackedEntries    prometheus.Gauge
	sweepsTotal       prometheus.Counter
	sweptEntries      prometheus.Counter
	trimmedTimestamps prometheus.Counter
}

// NewRateLimitMetrics creates and registers rate limiter metrics
func NewRateLimitMetrics(registry *prometheus.Registry) (*RateLimitMetrics, error) {
	m := &RateLimitMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RateLimitMetrics) initMetrics() {
	m.decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limiter decisions by endpoint class",
		},
		[]string{"class", "result"}, // result: allowed, rejected
	)
	m.trackedEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_tracked_entries",
		Help: "Client and class pairs currently tracked",
	})
	m.sweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_sweeps_total",
		Help: "Completed maintenance sweeps",
	})
	m.sweptEntries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_swept_entries_total",
		Help: "Entries removed by maintenance sweeps",
	})
	m.trimmedTimestamps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_trimmed_timestamps_total",
		Help: "Expired timestamps removed by maintenance sweeps",
	})
}

// Describe implements prometheus.Collector
func (m *RateLimitMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.decisionsTotal.Describe(ch)
	m.trackedEntries.Describe(ch)
	m.sweepsTotal.Describe(ch)
	m.sweptEntries.Describe(ch)
	m.trimmedTimestamps.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *RateLimitMetrics) Collect(ch chan<- prometheus.Metric) {
	m.decisionsTotal.Collect(ch)
	m.trackedEntries.Collect(ch)
	m.sweepsTotal.Collect(ch)
	m.sweptEntries.Collect(ch)
	m.trimmedTimestamps.Collect(ch)
}

// RecordDecision counts one CheckAndRecord result
func (m *RateLimitMetrics) RecordDecision(class string, allowed bool) {
	if m == nil {
		return
	}
	result := StatusAllowed
	if !allowed {
		result = StatusRejected
	}
	m.decisionsTotal.WithLabelValues(class, result).Inc()
}

// SetTrackedEntries sets the number of tracked client entries
func (m *RateLimitMetrics) SetTrackedEntries(n int) {
	if m == nil {
		return
	}
	m.trackedEntries.Set(float64(n))
}

// RecordSweep records the outcome of one sweep
func (m *RateLimitMetrics) RecordSweep(removedEntries, trimmedTimestamps, remaining int) {
	if m == nil {
		return
	}
	m.sweepsTotal.Inc()
	m.sweptEntries.Add(float64(removedEntries))
	m.trimmedTimestamps.Add(float64(trimmedTimestamps))
	m.trackedEntries.Set(float64(remaining))
}

// TrackedEntries returns the current gauge value
func (m *RateLimitMetrics) TrackedEntries() float64 {
	if m == nil {
		return 0
	}
	metric := &dto.Metric{}
	if err := m.trackedEntries.Write(metric); err != nil {
		logger.Global().Module("metrics").Warn("failed to read tracked entries gauge", logger.Error(err))
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
