package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultFPS matches a typical display refresh rate.
const DefaultFPS = 60

// FrameLoop is the per-view frame clock. While armed it delivers one tick
// per frame on C; while disarmed C is nil so a select on it never fires.
// One frame is one engine step: motion is frame-rate dependent.
type FrameLoop struct {
	clock    clockwork.Clock
	interval time.Duration

	mu     sync.Mutex
	ticker clockwork.Ticker
}

// NewFrameLoop creates a disarmed loop ticking fps times per second.
func NewFrameLoop(clock clockwork.Clock, fps int) *FrameLoop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &FrameLoop{
		clock:    clock,
		interval: time.Second / time.Duration(fps),
	}
}

// Interval returns the time between frames.
func (l *FrameLoop) Interval() time.Duration {
	return l.interval
}

// Arm schedules frames. Arming an armed loop keeps the running ticker.
func (l *FrameLoop) Arm() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ticker == nil {
		l.ticker = l.clock.NewTicker(l.interval)
	}
}

// Disarm cancels frame delivery immediately. Safe to call when disarmed.
func (l *FrameLoop) Disarm() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
}

// Armed reports whether frames are being scheduled.
func (l *FrameLoop) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticker != nil
}

// C returns the current frame channel, or nil while disarmed.
func (l *FrameLoop) C() <-chan time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ticker == nil {
		return nil
	}
	return l.ticker.Chan()
}
