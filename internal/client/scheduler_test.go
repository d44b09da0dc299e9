package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTask(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{})
	s.Schedule(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never ran")
	}
}

func TestSchedulerReplacesPendingTask(t *testing.T) {
	s := NewScheduler()
	var first, second atomic.Int32

	s.Schedule(50*time.Millisecond, func() { first.Add(1) })
	s.Schedule(time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool { return second.Load() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, first.Load(), "replaced task must not fire")
}

func TestSchedulerCancelKeepsSchedulerUsable(t *testing.T) {
	s := NewScheduler()
	var fired atomic.Int32

	s.Schedule(10*time.Millisecond, func() { fired.Add(1) })
	s.Cancel()
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, fired.Load())

	s.Schedule(time.Millisecond, func() { fired.Add(1) })
	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, time.Millisecond)
}

func TestSchedulerStopIsTerminal(t *testing.T) {
	s := NewScheduler()
	var fired atomic.Int32

	s.Schedule(10*time.Millisecond, func() { fired.Add(1) })
	s.Stop()
	s.Schedule(time.Millisecond, func() { fired.Add(1) })

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, fired.Load(), "nothing runs after Stop")
}
