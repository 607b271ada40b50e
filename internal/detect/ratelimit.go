package detect

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxCallsPerMinute is the default classifier call budget.
const DefaultMaxCallsPerMinute = 50

// waitBuffer is added to computed waits so re-checks land just after the
// oldest call exits the window, not just before.
const waitBuffer = 100 * time.Millisecond

// RateLimiter bounds classifier calls to a budget per rolling 60-second
// window. One instance is shared by all workers in a run; Acquire blocks
// until a call may proceed. This is backpressure, not an error path.
type RateLimiter struct {
	mu       sync.Mutex
	maxCalls int
	window   time.Duration
	calls    []time.Time

	log *zap.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter allowing maxPerMinute calls in any
// rolling 60-second window.
func NewRateLimiter(maxPerMinute int, log *zap.Logger) *RateLimiter {
	if maxPerMinute <= 0 {
		maxPerMinute = DefaultMaxCallsPerMinute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		maxCalls: maxPerMinute,
		window:   time.Minute,
		log:      log,
		now:      time.Now,
	}
}

// Acquire blocks until the call budget permits another call, then records
// it. Returns early only when ctx is done.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}

		l.log.Debug("rate limit reached, waiting",
			zap.Duration("wait", wait),
			zap.Int("max_calls_per_minute", l.maxCalls))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire records a call if the window has room, or returns how long to
// wait before the oldest recorded call leaves the window. Pruning and
// recording happen under one lock so concurrent workers cannot overshoot
// the budget.
func (l *RateLimiter) tryAcquire() (wait time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept

	if len(l.calls) < l.maxCalls {
		l.calls = append(l.calls, now)
		return 0, true
	}

	oldest := l.calls[0]
	return oldest.Add(l.window).Sub(now) + waitBuffer, false
}
