package chat

import (
	"sync"
	"time"
)

// TypingTimeout is how long the local typing flag survives without a keystroke.
const TypingTimeout = 5000 * time.Millisecond

type Timer interface {
	Stop() bool
}

// Clock schedules callbacks; tests swap in a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// TypingTimer calls expire once the timeout passes without a Touch. Each Touch
// replaces the pending deadline rather than adding another one.
type TypingTimer struct {
	clock   Clock
	timeout time.Duration
	expire  func()

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

func NewTypingTimer(clock Clock, timeout time.Duration, expire func()) *TypingTimer {
	if clock == nil {
		clock = SystemClock
	}
	if timeout <= 0 {
		timeout = TypingTimeout
	}
	return &TypingTimer{clock: clock, timeout: timeout, expire: expire}
}

func (t *TypingTimer) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		current := gen == t.gen
		if current {
			t.timer = nil
		}
		t.mu.Unlock()
		if current {
			t.expire()
		}
	})
}

// Stop cancels the pending deadline, if any.
func (t *TypingTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *TypingTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
