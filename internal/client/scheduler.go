package client

import (
	"sync"
	"time"
)

// Scheduler holds at most one pending delayed task. Scheduling again replaces
// the pending task, so an adaptive loop can re-arm itself with a new delay on
// every tick without leaking timers. Stop is terminal: later schedules no-op.
type Scheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule arms fn to run after d, cancelling any previously pending task.
func (s *Scheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.stopped {
		return
	}
	s.timer = time.AfterFunc(d, fn)
}

// Cancel drops the pending task, if any. The scheduler stays usable.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Stop cancels and prevents any future scheduling. Used on teardown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
