package notification

import (
	"context"

	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

// ErrQueueFull is recorded when a notification is dropped on a full queue.
var ErrQueueFull = errors.NewStd("notification queue full")

// run delivers queued notifications until the queue is closed
func (s *Service) run() {
	defer s.wg.Done()
	for n := range s.queue {
		s.deliver(n)
	}
}

func (s *Service) deliver(n *Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		return s.sender.Send(ctx, n)
	})
	s.metrics.RecordNotification(string(n.Kind), err)

	if err != nil {
		s.failed.Add(1)
		if errors.Is(err, ErrCircuitOpen) {
			s.log.Debug("notification skipped, circuit open", logger.String("kind", string(n.Kind)))
			return
		}
		s.log.Warn("notification delivery failed",
			logger.String("kind", string(n.Kind)),
			logger.Error(err))
		return
	}

	s.delivered.Add(1)
	s.log.Debug("notification delivered", logger.String("kind", string(n.Kind)))
}
