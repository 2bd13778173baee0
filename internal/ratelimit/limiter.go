// Package ratelimit implements a sliding-window request limiter keyed by
// client and endpoint class.
//
// Each (client, class) pair keeps an ordered log of request timestamps. A
// request is allowed while fewer than MaxRequests timestamps fall inside the
// class window. Pairs are guarded by their own mutex, so different clients
// never wait on each other; the map lock is only taken to find or create a
// pair and by the periodic sweep.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
)

// Class names a group of endpoints sharing one policy
type Class string

const (
	ClassContact  Class = "contact"
	ClassVerify   Class = "verify"
	ClassRegister Class = "register"
)

// DefaultRetention is how long timestamps survive a sweep
const DefaultRetention = time.Hour

// Policy is the request budget of a class
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// DefaultPolicies returns the built-in budgets
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassContact:  {Window: time.Minute, MaxRequests: 3},
		ClassVerify:   {Window: time.Minute, MaxRequests: 10},
		ClassRegister: {Window: 5 * time.Minute, MaxRequests: 5},
	}
}

// PoliciesFromSettings builds the class budgets from configuration
func PoliciesFromSettings(s *conf.RateLimitSettings) map[Class]Policy {
	return map[Class]Policy{
		ClassContact:  {Window: s.Contact.Window, MaxRequests: s.Contact.MaxRequests},
		ClassVerify:   {Window: s.Verify.Window, MaxRequests: s.Verify.MaxRequests},
		ClassRegister: {Window: s.Register.Window, MaxRequests: s.Register.MaxRequests},
	}
}

// Decision is the outcome of one CheckAndRecord call
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, at least 1
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// SweepStats reports what one sweep removed
type SweepStats struct {
	RemovedEntries    int
	TrimmedTimestamps int
	Remaining         int
}

type entryKey struct {
	client string
	class  Class
}

type entry struct {
	mu      sync.Mutex
	stamps  []time.Time // oldest first
	removed bool        // set by Sweep once the entry left the map
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithRetention sets how long timestamps are kept by Sweep
func WithRetention(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.retention = d
		}
	}
}

// WithMetrics records decisions and sweeps
func WithMetrics(m *metrics.RateLimitMetrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// Limiter is a sliding-window limiter. The zero value is not usable; call New.
type Limiter struct {
	policies  map[Class]Policy
	retention time.Duration
	now       func() time.Time
	metrics   *metrics.RateLimitMetrics
	log       logger.Logger

	mu      sync.RWMutex
	entries map[entryKey]*entry
}

// New creates a limiter with the given class policies. Classes without a
// policy are never limited.
func New(policies map[Class]Policy, opts ...Option) *Limiter {
	l := &Limiter{
		policies:  make(map[Class]Policy, len(policies)),
		retention: DefaultRetention,
		now:       time.Now,
		log:       GetLogger(),
		entries:   make(map[entryKey]*entry),
	}
	for class, p := range policies {
		l.policies[class] = p
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the policy of class
func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.policies[class]
	return p, ok
}

func (l *Limiter) lookup(key entryKey) *entry {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[key]; !ok {
		e = &entry{}
		l.entries[key] = e
		l.metrics.SetTrackedEntries(len(l.entries))
	}
	return e
}

// CheckAndRecord decides whether clientID may make a request of class now.
// An allowed request is recorded; a rejected one is not.
func (l *Limiter) CheckAndRecord(clientID string, class Class) Decision {
	policy, ok := l.policies[class]
	if !ok || policy.MaxRequests <= 0 || policy.Window <= 0 {
		return Decision{Allowed: true, Remaining: -1}
	}

	key := entryKey{client: clientID, class: class}
	for {
		e := l.lookup(key)
		e.mu.Lock()
		if e.removed {
			// swept between lookup and lock
			e.mu.Unlock()
			continue
		}
		d := l.decideLocked(e, policy)
		e.mu.Unlock()

		l.metrics.RecordDecision(string(class), d.Allowed)
		if !d.Allowed {
			l.log.Info("request rate limited",
				logger.String("client", clientID),
				logger.String("class", string(class)),
				logger.Int("retry_after_s", d.RetryAfterSeconds()))
		}
		return d
	}
}

func (l *Limiter) decideLocked(e *entry, p Policy) Decision {
	now := l.now()
	windowStart := now.Add(-p.Window)

	// first timestamp still inside the window
	first := len(e.stamps)
	for i, ts := range e.stamps {
		if ts.After(windowStart) {
			first = i
			break
		}
	}
	inWindow := len(e.stamps) - first

	if inWindow >= p.MaxRequests {
		oldest := e.stamps[first]
		return Decision{
			Allowed:    false,
			Limit:      p.MaxRequests,
			RetryAfter: oldest.Add(p.Window).Sub(now),
		}
	}

	e.stamps = append(e.stamps, now)
	return Decision{
		Allowed:   true,
		Limit:     p.MaxRequests,
		Remaining: p.MaxRequests - inWindow - 1,
	}
}

// Sweep drops timestamps older than the retention period, or older than the
// class window when that is longer, and removes entries left empty.
func (l *Limiter) Sweep() SweepStats {
	now := l.now()
	var stats SweepStats

	l.mu.Lock()
	for key, e := range l.entries {
		keep := l.retention
		if p, ok := l.policies[key.class]; ok && p.Window > keep {
			keep = p.Window
		}
		cutoff := now.Add(-keep)

		e.mu.Lock()
		drop := 0
		for drop < len(e.stamps) && !e.stamps[drop].After(cutoff) {
			drop++
		}
		if drop > 0 {
			e.stamps = append(e.stamps[:0], e.stamps[drop:]...)
			stats.TrimmedTimestamps += drop
		}
		if len(e.stamps) == 0 {
			e.removed = true
			delete(l.entries, key)
			stats.RemovedEntries++
		}
		e.mu.Unlock()
	}
	stats.Remaining = len(l.entries)
	l.mu.Unlock()

	l.metrics.RecordSweep(stats.RemovedEntries, stats.TrimmedTimestamps, stats.Remaining)
	return stats
}

// Tracked returns the number of (client, class) entries held
func (l *Limiter) Tracked() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Run sweeps every interval until ctx is cancelled
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		l.log.Warn("rate limiter sweep disabled", logger.Duration("interval", interval))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.log.Debug("rate limiter sweep started", logger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("rate limiter sweep stopped")
			return
		case <-ticker.C:
			stats := l.Sweep()
			if stats.RemovedEntries > 0 || stats.TrimmedTimestamps > 0 {
				l.log.Debug("rate limiter sweep",
					logger.Int("removed_entries", stats.RemovedEntries),
					logger.Int("trimmed_timestamps", stats.TrimmedTimestamps),
					logger.Int("remaining", stats.Remaining))
			}
		}
	}
}

// GetLogger returns the ratelimit module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("ratelimit")
}
