package monitoring

import (
	"sync"
	"time"

	"github.com/banshee-data/trackline/internal/timeutil"
)

// Throttle rate-limits log messages by key. The first message for a key is
// always emitted; later ones are dropped until the interval has passed, and
// the next emitted message reports how many were suppressed.
type Throttle struct {
	interval time.Duration
	clock    timeutil.Clock

	mu         sync.Mutex
	last       map[string]time.Time
	suppressed map[string]int
}

// NewThrottle returns a Throttle that emits at most one message per key per
// interval.
func NewThrottle(interval time.Duration) *Throttle {
	return NewThrottleWithClock(interval, timeutil.RealClock{})
}

// NewThrottleWithClock is NewThrottle with an explicit clock.
func NewThrottleWithClock(interval time.Duration, clock timeutil.Clock) *Throttle {
	return &Throttle{
		interval:   interval,
		clock:      clock,
		last:       make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

// Logf logs through the package logger unless key was logged within the
// interval. It reports whether the message was emitted.
func (t *Throttle) Logf(key, format string, v ...interface{}) bool {
	t.mu.Lock()
	now := t.clock.Now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		t.suppressed[key]++
		t.mu.Unlock()
		return false
	}
	dropped := t.suppressed[key]
	t.last[key] = now
	delete(t.suppressed, key)
	t.mu.Unlock()

	if dropped > 0 {
		Logf(format+" (%d similar suppressed)", append(v, dropped)...)
	} else {
		Logf(format, v...)
	}
	return true
}
