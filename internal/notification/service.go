package notification

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

const (
	DefaultQueueSize = 64
	DefaultTimeout   = 10 * time.Second
)

// ServiceConfig holds the configuration for the notification service.
type ServiceConfig struct {
	// QueueSize bounds pending notifications; Notify drops when it is full
	QueueSize int
	// Timeout bounds a single delivery
	Timeout time.Duration
	// CircuitBreaker guards the sender
	CircuitBreaker CircuitBreakerConfig
}

// DefaultServiceConfig returns a default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		QueueSize:      DefaultQueueSize,
		Timeout:        DefaultTimeout,
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// Stats are delivery counters since start
type Stats struct {
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Service queues notifications and delivers them on a worker goroutine.
// A nil *Service accepts and discards notifications.
type Service struct {
	sender  Sender
	config  ServiceConfig
	breaker *CircuitBreaker
	metrics *metrics.IntegrationMetrics
	log     logger.Logger

	mu     sync.RWMutex
	queue  chan *Notification
	closed bool
	wg     sync.WaitGroup

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewService starts a service delivering through sender. Close must be
// called to stop the worker.
func NewService(sender Sender, config ServiceConfig, m *metrics.IntegrationMetrics) *Service {
	def := DefaultServiceConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	s := &Service{
		sender:  sender,
		config:  config,
		breaker: NewCircuitBreaker(config.CircuitBreaker),
		metrics: m,
		log:     GetLogger(),
		queue:   make(chan *Notification, config.QueueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// NewServiceFromSettings builds a shoutrrr-backed service. It returns nil
// when notifications are disabled.
func NewServiceFromSettings(settings *conf.NotificationSettings, m *metrics.IntegrationMetrics) (*Service, error) {
	if settings == nil || !settings.Enabled {
		return nil, nil
	}
	sender, err := NewShoutrrrSender(settings.URLs, settings.Timeout)
	if err != nil {
		return nil, err
	}

	cfg := DefaultServiceConfig()
	cfg.QueueSize = settings.QueueSize
	cfg.Timeout = settings.Timeout

	GetLogger().Info("admin notifications enabled", logger.Int("services", sender.Services()))
	return NewService(sender, cfg, m), nil
}

// Notify queues n for delivery. It never blocks and reports whether n was
// accepted.
func (s *Service) Notify(n *Notification) bool {
	if s == nil || n == nil {
		return false
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.queue <- n:
		return true
	default:
		s.dropped.Add(1)
		s.metrics.RecordNotification(string(n.Kind), ErrQueueFull)
		s.log.Warn("notification queue full, dropping",
			logger.String("kind", string(n.Kind)),
			logger.Int("queue_size", s.config.QueueSize))
		return false
	}
}

// Close stops accepting notifications, delivers what is queued and waits
// for the worker to exit.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
}

// Stats returns delivery counters
func (s *Service) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		Delivered: s.delivered.Load(),
		Failed:    s.failed.Load(),
		Dropped:   s.dropped.Load(),
	}
}
