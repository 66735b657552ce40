package client

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between request dispatches. A single
// mutex guards the last dispatch time, so callers are spaced out in the order
// they acquire it. A nil *Throttle never waits.
type Throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewThrottle returns a Throttle for the given interval, or nil when the
// interval is not positive.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return nil
	}
	return &Throttle{interval: interval, now: time.Now}
}

// Wait sleeps the remainder of the interval since the previous dispatch, then
// records the current dispatch.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		if wait := t.interval - t.now().Sub(t.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	t.last = t.now()
	return nil
}
