// Package leads keeps the lead audit trail. A recorded lead is appended to
// the lead-audit-logs collection, published as an MQTT event and, for chat
// leads, announced to the admins.
package leads

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/mqtt"
	"github.com/learnforge/trainingportal/internal/notification"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
	"github.com/learnforge/trainingportal/internal/repository"
)

const defaultPublishTimeout = 5 * time.Second

// Notifier queues admin alerts
type Notifier interface {
	Notify(n *notification.Notification) bool
}

// Event is the MQTT payload published for every lead
type Event struct {
	ID        int       `json:"id"`
	Source    string    `json:"source"`
	Intent    string    `json:"intent,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Service records leads. Recording never fails the caller: storage,
// publish and notification errors are logged and counted. MQTT events are
// published in the background; Close waits for them.
type Service struct {
	repo           *repository.LeadRepository
	publisher      mqtt.Publisher
	notifier       Notifier
	metrics        *metrics.IntegrationMetrics
	publishTimeout time.Duration
	log            logger.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithPublisher publishes lead events through p
func WithPublisher(p mqtt.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithNotifier announces chat leads through n
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics counts recorded leads
func WithMetrics(m *metrics.IntegrationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublishTimeout bounds a single MQTT publish
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// NewService creates a lead recorder writing to repo
func NewService(repo *repository.LeadRepository, opts ...Option) *Service {
	s := &Service{
		repo:           repo,
		publishTimeout: defaultPublishTimeout,
		log:            GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordLead appends lead to the audit trail and fans it out
func (s *Service) RecordLead(ctx context.Context, lead entities.LeadAuditLog) {
	log := s.log.WithContext(ctx)
	lead.Source = strings.TrimSpace(lead.Source)
	if lead.Source == "" {
		lead.Source = entities.LeadSourceChat
	}

	saved, err := s.repo.Add(lead)
	if err != nil {
		log.Error("failed to record lead",
			logger.String("source", lead.Source),
			logger.String("intent", lead.Intent),
			logger.Error(err))
		// publish even when the write failed
		saved = lead
	}
	s.metrics.RecordLead(saved.Source, saved.Intent)

	log.Info("lead recorded",
		logger.Int("id", saved.ID),
		logger.String("source", saved.Source),
		logger.String("intent", saved.Intent),
		logger.String("session_id", saved.SessionID))

	s.publishAsync(&saved)

	if s.notifier != nil && saved.Source == entities.LeadSourceChat {
		s.notifier.Notify(notification.LeadNotification(&saved))
	}
}

// publishAsync publishes a copy of lead in the background. Events recorded
// after Close are not published.
func (s *Service) publishAsync(lead *entities.LeadAuditLog) {
	if s.publisher == nil || !s.publisher.IsConnected() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Debug("lead event dropped, service closed", logger.Int("id", lead.ID))
		return
	}

	ev := *lead
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.publish(&ev)
	}()
}

func (s *Service) publish(lead *entities.LeadAuditLog) {

	ts := time.Now()
	if lead.CreatedAt != nil {
		ts = *lead.CreatedAt
	}
	payload, err := json.Marshal(Event{
		ID:        lead.ID,
		Source:    lead.Source,
		Intent:    lead.Intent,
		Goal:      lead.Goal,
		SessionID: lead.SessionID,
		Email:     lead.Email,
		Timestamp: ts,
	})
	if err != nil {
		s.log.Error("failed to encode lead event", logger.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, lead.Source, payload); err != nil {
		s.log.Warn("failed to publish lead event",
			logger.Int("id", lead.ID),
			logger.Error(err))
	}
}

// Close stops accepting lead events for publishing and waits for the ones
// in flight, each bounded by the publish timeout.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}

// Recent returns the newest n leads
func (s *Service) Recent(n int) ([]entities.LeadAuditLog, error) {
	return s.repo.Recent(n)
}

// GetLogger returns the leads module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("leads")
}
