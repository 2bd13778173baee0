package backup

import (
	"context"
	"sync"
	"time"

	"github.com/learnforge/trainingportal/internal/logger"
)

// Runner runs one backup
type Runner interface {
	Run(ctx context.Context) (*Metadata, error)
}

// Scheduler runs backups at a fixed interval
type Scheduler struct {
	runner   Runner
	interval time.Duration
	log      logger.Logger

	mu      sync.RWMutex
	lastRun time.Time
	lastErr error
	nextRun time.Time
}

// NewScheduler creates a scheduler running r every interval
func NewScheduler(r Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   r,
		interval: interval,
		log:      GetLogger(),
	}
}

// Run blocks until ctx is done, running a backup every interval. It
// returns immediately when the interval is not positive.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("backup scheduler disabled, no interval set")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.setNext(time.Now().Add(s.interval))
	s.log.Info("backup scheduler started", logger.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("backup scheduler stopped")
			return
		case now := <-ticker.C:
			s.runOnce(ctx, now)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	meta, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.lastRun = now
	s.lastErr = err
	s.nextRun = now.Add(s.interval)
	s.mu.Unlock()

	switch {
	case err != nil && meta != nil:
		s.log.Warn("scheduled backup partially failed", logger.String("id", meta.ID), logger.Error(err))
	case err != nil:
		s.log.Error("scheduled backup failed", logger.Error(err))
	default:
		s.log.Info("scheduled backup finished", logger.String("id", meta.ID))
	}
}

func (s *Scheduler) setNext(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun = t
}

// Status describes the scheduler's last and next run
type Status struct {
	LastRun time.Time
	LastErr error
	NextRun time.Time
}

// Status returns the last and next run
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{LastRun: s.lastRun, LastErr: s.lastErr, NextRun: s.nextRun}
}
