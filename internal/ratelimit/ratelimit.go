// Package ratelimit paces outbound Clash Royale API calls to a fixed rate,
// shared by every concurrent scrape worker.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter hands out one slot per interval. A caller waits until the
// reserved next-slot timestamp has passed, then reserves the slot after it.
// Ordering among waiters follows the mutex queue; there is no fairness
// guarantee beyond that.
type Limiter struct {
	interval time.Duration

	mu     sync.Mutex
	nextAt time.Time
}

// New creates a limiter allowing perSecond calls per second. perSecond may
// be fractional (0.5 means one call every two seconds).
func New(perSecond float64) *Limiter {
	return &Limiter{
		interval: time.Duration(float64(time.Second) / perSecond),
	}
}

// Acquire blocks until it is the caller's turn, or until ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if wait := l.nextAt.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now = <-timer.C:
		}
	}

	// Reserve the next time slot before releasing the lock, so exactly
	// one caller proceeds per interval.
	l.nextAt = now.Add(l.interval)
	return nil
}

// Interval returns the minimum spacing between successive calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
