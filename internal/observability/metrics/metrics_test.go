package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewStoreMetrics(reg)
	require.NoError(t, err)

	m.RecordOperation("json", OpSave, "courses", StatusSuccess, 3*time.Millisecond)
	m.RecordOperation("json", OpSave, "courses", StatusSuccess, 2*time.Millisecond)
	m.RecordOperation("json", OpLoad, "events", StatusNotFound, time.Millisecond)
	m.RecordBytesWritten("json", "courses", 512)

	assert.InDelta(t, 2, testutil.ToFloat64(m.operationsTotal.WithLabelValues("json", OpSave, "courses", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues("json", OpLoad, "events", StatusNotFound)), 0)
	assert.InDelta(t, 512, testutil.ToFloat64(m.bytesWritten.WithLabelValues("json", "courses")), 0)

	_, err = NewStoreMetrics(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestRateLimitMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewRateLimitMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordDecision("contact", true)
	m.RecordDecision("contact", false)
	m.RecordDecision("contact", false)
	m.SetTrackedEntries(4)
	m.RecordSweep(3, 10, 1)

	assert.InDelta(t, 2, testutil.ToFloat64(m.decisionsTotal.WithLabelValues("contact", StatusRejected)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.sweptEntries), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(m.trimmedTimestamps), 0)
	assert.InDelta(t, 1, m.TrackedEntries(), 0)
}

func TestChatAndIntegrationMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	chat, err := NewChatMetrics(reg)
	require.NoError(t, err)
	integ, err := NewIntegrationMetrics(reg)
	require.NoError(t, err)

	chat.RecordMessage("pricing")
	chat.RecordProviderRequest("quota", 50*time.Millisecond)
	chat.RecordCacheLookup(true)
	chat.RecordCacheLookup(false)
	integ.RecordMQTTPublish(nil)
	integ.RecordMQTTPublish(errors.New("not connected"))
	integ.SetMQTTConnected(true)
	integ.RecordNotification("contact", nil)
	integ.RecordLead("chat", "pricing")
	integ.RecordBackupTarget("local", nil)
	integ.RecordBackupRun(time.Second, 2048)

	assert.InDelta(t, 1, testutil.ToFloat64(chat.providerRequests.WithLabelValues("quota")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(chat.cacheLookups.WithLabelValues(StatusHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(integ.mqttPublishes.WithLabelValues(StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(integ.mqttConnected), 0)
	assert.InDelta(t, 2048, testutil.ToFloat64(integ.backupSizeBytes), 0)

	count, err := testutil.GatherAndCount(reg, "chat_messages_total", "leads_recorded_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHTTPMetricsInFlight(t *testing.T) {
	t.Parallel()

	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RequestStarted()
	m.RequestStarted()
	assert.InDelta(t, 2, testutil.ToFloat64(m.inFlight), 0)

	m.RecordRequest("GET", "/api/courses", 200, 5*time.Millisecond)
	m.RecordLogin(false)
	assert.InDelta(t, 1, testutil.ToFloat64(m.inFlight), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/courses", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.authAttempts.WithLabelValues(StatusError)), 0)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	var (
		store *StoreMetrics
		rl    *RateLimitMetrics
		chat  *ChatMetrics
		integ *IntegrationMetrics
		h     *HTTPMetrics
	)
	assert.NotPanics(t, func() {
		store.RecordOperation("json", OpLoad, "x", StatusSuccess, 0)
		store.RecordLockWait("json", "global", 0)
		rl.RecordDecision("verify", true)
		rl.RecordSweep(1, 1, 0)
		chat.RecordMessage("general")
		integ.RecordLead("contact", "")
		h.RecordRequest("GET", "/", 200, 0)
	})
	assert.Zero(t, rl.TrackedEntries())
}
