// Package metrics provides metrics for outbound integrations
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IntegrationMetrics covers MQTT publishing, notifications, lead capture and backups.
// A nil *IntegrationMetrics is valid and records nothing.
type IntegrationMetrics struct {
	mqttPublishes   *prometheus.CounterVec
	mqttConnected   prometheus.Gauge
	notifications   *prometheus.CounterVec
	leadsTotal      *prometheus.CounterVec
	backupsTotal    *prometheus.CounterVec
	backupDuration  prometheus.Histogram
	backupSizeBytes prometheus.Gauge
}

// NewIntegrationMetrics creates and registers integration metrics
func NewIntegrationMetrics(registry *prometheus.Registry) (*IntegrationMetrics, error) {
	m := &IntegrationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IntegrationMetrics) initMetrics() {
	m.mqttPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_publishes_total",
			Help: "MQTT publish attempts by result",
		},
		[]string{"status"},
	)
	m.mqttConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mqtt_connected",
		Help: "1 when the MQTT client is connected",
	})
	m.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Admin notifications by kind and result",
		},
		[]string{"kind", "status"},
	)
	m.leadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_recorded_total",
			Help: "Leads recorded by source and intent",
		},
		[]string{"source", "intent"},
	)
	m.backupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_total",
			Help: "Backup uploads by target and result",
		},
		[]string{"target", "status"},
	)
	m.backupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backup_duration_seconds",
		Help:    "Time taken by a complete backup run",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount15),
	})
	m.backupSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backup_archive_size_bytes",
		Help: "Size of the most recent backup archive",
	})
}

// Describe implements prometheus.Collector
func (m *IntegrationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *IntegrationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

func (m *IntegrationMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.mqttPublishes, m.mqttConnected, m.notifications, m.leadsTotal,
		m.backupsTotal, m.backupDuration, m.backupSizeBytes,
	}
}

// RecordMQTTPublish counts a publish attempt
func (m *IntegrationMetrics) RecordMQTTPublish(err error) {
	if m == nil {
		return
	}
	m.mqttPublishes.WithLabelValues(statusOf(err)).Inc()
}

// SetMQTTConnected updates the connection gauge
func (m *IntegrationMetrics) SetMQTTConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.mqttConnected.Set(1)
	} else {
		m.mqttConnected.Set(0)
	}
}

// RecordNotification counts a delivered or failed notification
func (m *IntegrationMetrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, statusOf(err)).Inc()
}

// RecordLead counts a recorded lead
func (m *IntegrationMetrics) RecordLead(source, intent string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(source, intent).Inc()
}

// RecordBackupTarget counts one target upload
func (m *IntegrationMetrics) RecordBackupTarget(target string, err error) {
	if m == nil {
		return
	}
	m.backupsTotal.WithLabelValues(target, statusOf(err)).Inc()
}

// RecordBackupRun records a complete run
func (m *IntegrationMetrics) RecordBackupRun(duration time.Duration, archiveSize int64) {
	if m == nil {
		return
	}
	m.backupDuration.Observe(duration.Seconds())
	m.backupSizeBytes.Set(float64(archiveSize))
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
