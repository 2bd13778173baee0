package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []*Notification
	err   error
	block chan struct{}
}

func (r *recordingSender) Send(ctx context.Context, n *Notification) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestServiceDeliversQueuedNotifications(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewIntegrationMetrics(reg)
	require.NoError(t, err)

	sender := &recordingSender{}
	svc := NewService(sender, DefaultServiceConfig(), m)

	msg := &entities.ContactMessage{Name: "Ada", Email: "ada@example.com", Subject: "Group booking", Message: "We are five people."}
	require.True(t, svc.Notify(ContactMessageNotification(msg)))
	require.True(t, svc.Notify(&Notification{Kind: KindSystem, Message: "ping"}))
	svc.Close()

	require.Equal(t, 2, sender.count())
	assert.Equal(t, KindContactMessage, sender.sent[0].Kind)
	assert.Contains(t, sender.sent[0].Message, "ada@example.com")
	assert.Contains(t, sender.sent[0].Message, "Group booking")
	assert.False(t, sender.sent[1].Timestamp.IsZero())

	assert.Equal(t, Stats{Delivered: 2}, svc.Stats())
	assert.Equal(t, 2, testutil.CollectAndCount(m, "notifications_sent_total"))
}

func TestNotifyAfterCloseIsRejected(t *testing.T) {
	svc := NewService(&recordingSender{}, DefaultServiceConfig(), nil)
	svc.Close()
	svc.Close()

	assert.False(t, svc.Notify(&Notification{Kind: KindSystem}))
}

func TestNotifyDropsWhenQueueIsFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	svc := NewService(sender, ServiceConfig{QueueSize: 1, Timeout: time.Second}, nil)

	// the worker takes the first, the queue holds the second
	require.True(t, svc.Notify(&Notification{Kind: KindSystem}))
	require.Eventually(t, func() bool {
		return svc.Notify(&Notification{Kind: KindSystem})
	}, time.Second, time.Millisecond)
	assert.False(t, svc.Notify(&Notification{Kind: KindSystem}))

	close(sender.block)
	svc.Close()

	stats := svc.Stats()
	assert.Equal(t, uint64(2), stats.Delivered)
	assert.GreaterOrEqual(t, stats.Dropped, uint64(1))
}

func TestFailuresOpenTheCircuit(t *testing.T) {
	sender := &recordingSender{err: errors.NewStd("service unavailable")}
	cfg := DefaultServiceConfig()
	cfg.CircuitBreaker = CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour}
	svc := NewService(sender, cfg, nil)

	for range 5 {
		svc.Notify(&Notification{Kind: KindLead})
	}
	svc.Close()

	assert.Equal(t, 2, sender.count())
	assert.Equal(t, uint64(5), svc.Stats().Failed)
}

func TestNilServiceIsInert(t *testing.T) {
	var svc *Service
	assert.False(t, svc.Notify(&Notification{}))
	svc.Close()
	assert.Equal(t, Stats{}, svc.Stats())
}

func TestNewServiceFromSettings(t *testing.T) {
	svc, err := NewServiceFromSettings(&conf.NotificationSettings{Enabled: false}, nil)
	require.NoError(t, err)
	assert.Nil(t, svc)

	_, err = NewServiceFromSettings(&conf.NotificationSettings{Enabled: true}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	svc, err = NewServiceFromSettings(&conf.NotificationSettings{Enabled: true, URLs: []string{"logger://"}}, nil)
	require.NoError(t, err)
	require.NotNil(t, svc)
	svc.Close()
}

func TestNotificationBuilders(t *testing.T) {
	t.Parallel()

	reg := RegistrationNotification(&entities.EventRegistration{EventID: 4, FullName: "Linus", Email: "l@example.com", Company: "Acme"}, "")
	assert.Equal(t, KindRegistration, reg.Kind)
	assert.Equal(t, "Linus <l@example.com> registered for event #4 (Acme)", reg.Message)

	lead := LeadNotification(&entities.LeadAuditLog{Source: entities.LeadSourceChat, Intent: "escalation", SessionID: "s1", Message: "call me"})
	assert.Contains(t, lead.Message, "intent: escalation")
	assert.Contains(t, lead.Message, "Session: s1")
	assert.Contains(t, lead.Message, "call me")

	long := ContactMessageNotification(&entities.ContactMessage{Name: "x", Email: "x@example.com", Message: string(make([]rune, 600))})
	assert.Contains(t, long.Message, "…")
}
