// Package metrics provides chat metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics contains Prometheus metrics for the chat assistant.
// A nil *ChatMetrics is valid and records nothing.
type ChatMetrics struct {
	messagesTotal    *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	providerDuration prometheus.Histogram
	cacheLookups     *prometheus.CounterVec
}

// NewChatMetrics creates and registers chat metrics
func NewChatMetrics(registry *prometheus.Registry) (*ChatMetrics, error) {
	m := &ChatMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ChatMetrics) initMetrics() {
	m.messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages handled by classified intent",
		},
		[]string{"intent"},
	)
	m.providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_provider_requests_total",
			Help: "Requests sent to the generative AI provider by outcome",
		},
		[]string{"status"}, // success, quota, timeout, malformed, upstream
	)
	m.providerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_provider_request_duration_seconds",
		Help:    "Latency of generative AI provider requests",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
	})
	m.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_lookups_total",
			Help: "Reply cache lookups by result",
		},
		[]string{"result"},
	)
}

// Describe implements prometheus.Collector
func (m *ChatMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.messagesTotal.Describe(ch)
	m.providerRequests.Describe(ch)
	m.providerDuration.Describe(ch)
	m.cacheLookups.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *ChatMetrics) Collect(ch chan<- prometheus.Metric) {
	m.messagesTotal.Collect(ch)
	m.providerRequests.Collect(ch)
	m.providerDuration.Collect(ch)
	m.cacheLookups.Collect(ch)
}

// RecordMessage counts a handled message
func (m *ChatMetrics) RecordMessage(intent string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent).Inc()
}

// RecordProviderRequest records one provider call
func (m *ChatMetrics) RecordProviderRequest(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(status).Inc()
	m.providerDuration.Observe(duration.Seconds())
}

// RecordCacheLookup counts a reply cache hit or miss
func (m *ChatMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := StatusMiss
	if hit {
		result = StatusHit
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
