package streamtest

import (
	"sync"
	"time"
)

// ManualTimer is a stream.TimerFunc source whose timers fire only when Fire
// is called.
type ManualTimer struct {
	mu       sync.Mutex
	ch       chan time.Time
	duration time.Duration
	stopped  bool
	fired    bool
}

// NewManualTimer constructs a ManualTimer.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{ch: make(chan time.Time, 1)}
}

// Start satisfies stream.TimerFunc. A ManualTimer serves one session.
func (m *ManualTimer) Start(d time.Duration) (<-chan time.Time, func() bool) {
	m.mu.Lock()
	m.duration = d
	m.mu.Unlock()
	return m.ch, m.stop
}

func (m *ManualTimer) stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasActive := !m.stopped && !m.fired
	m.stopped = true
	return wasActive
}

// Fire expires the timer. It is a no-op after the first call or once the
// timer has been stopped.
func (m *ManualTimer) Fire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fired || m.stopped {
		return
	}
	m.fired = true
	m.ch <- time.Now()
}

// Duration is the timeout the timer was started with.
func (m *ManualTimer) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// Stopped reports whether the supervisor stopped the timer.
func (m *ManualTimer) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
