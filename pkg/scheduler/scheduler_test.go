package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/object"
)

type recordingExecutor struct {
	resumed []*object.Fiber
}

func (r *recordingExecutor) Resume(f *object.Fiber) {
	r.resumed = append(r.resumed, f)
	f.State = object.FiberDead
}

func newTestScheduler(exec Executor) (*Scheduler, *VirtualClock) {
	clock := NewVirtualClock()
	poller := ManualPoller{Clock: clock}
	return New(exec, poller, clock, zerolog.Nop()), clock
}

func TestStepRunsMicrotasksBeforeRunQueue(t *testing.T) {
	exec := &recordingExecutor{}
	s, _ := newTestScheduler(exec)

	var order []string
	s.EnqueueFiber(object.NewFiber())
	s.EnqueueMicrotask(func() { order = append(order, "micro") })

	s.Step() // drains the microtask first
	require.Equal(t, []string{"micro"}, order)
	require.Empty(t, exec.resumed)

	s.Step() // now the run queue
	require.Len(t, exec.resumed, 1)
}

func TestEnqueueMicrotaskIsLIFO(t *testing.T) {
	exec := &recordingExecutor{}
	s, _ := newTestScheduler(exec)

	var order []int
	s.EnqueueMicrotask(func() { order = append(order, 1) })
	s.EnqueueMicrotask(func() { order = append(order, 2) })
	s.EnqueueMicrotask(func() { order = append(order, 3) })

	s.Step()
	s.Step()
	s.Step()
	require.Equal(t, []int{3, 2, 1}, order)
}

func TestDeadFiberIsDroppedWithoutResume(t *testing.T) {
	exec := &recordingExecutor{}
	s, _ := newTestScheduler(exec)

	dead := object.NewFiber()
	dead.State = object.FiberDead
	s.EnqueueFiber(dead)

	ran := s.Step()
	require.True(t, ran)
	require.Empty(t, exec.resumed)
}

func TestTimerFiresInWakeTimeOrderAndAdvancesClock(t *testing.T) {
	exec := &recordingExecutor{}
	s, clock := newTestScheduler(exec)

	var order []string
	s.ScheduleTimerCallback(clock.Now().Add(2*time.Second), func() { order = append(order, "second") })
	s.ScheduleTimerCallback(clock.Now().Add(1*time.Second), func() { order = append(order, "first") })

	s.Run()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestScheduleTimerFiberEnqueuesOnExpiry(t *testing.T) {
	exec := &recordingExecutor{}
	s, clock := newTestScheduler(exec)

	f := object.NewFiber()
	s.ScheduleTimerFiber(clock.Now().Add(time.Second), f)
	require.False(t, s.Idle())

	s.Run()
	require.Len(t, exec.resumed, 1)
	require.Same(t, f, exec.resumed[0])
}

func TestIdleReportsNoPendingWork(t *testing.T) {
	exec := &recordingExecutor{}
	s, _ := newTestScheduler(exec)
	require.True(t, s.Idle())

	s.EnqueueFiber(object.NewFiber())
	require.False(t, s.Idle())

	s.Run()
	require.True(t, s.Idle())
}
