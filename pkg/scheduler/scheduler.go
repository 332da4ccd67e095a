// Package scheduler implements the run queue, microtask queue, timer
// heap, and promise settlement/await contract of spec §4.4 and §5.
package scheduler

import (
	"container/heap"
	"time"

	"github.com/rs/zerolog"

	"github.com/kanon/serilang/pkg/object"
)

// ErrSuspend is returned by a native function to tell the interpreter
// "I have parked this fiber; do not push a return value — a waker
// will resume it later" (spec §4.4, §5: "native functions ... must
// not call back into the interpreter on the same fiber's stack; they
// return a Future when asynchronous work is pending").
var ErrSuspend = suspendError{}

type suspendError struct{}

func (suspendError) Error() string { return "fiber suspended pending an async result" }

// Executor runs a fiber's bytecode until it yields, awaits, or dies.
// Implemented by package vm; kept as an interface here so scheduler
// never imports vm (vm imports scheduler instead).
type Executor interface {
	Resume(f *object.Fiber)
}

// Clock abstracts "now" so tests can drive virtual time deterministically
// (spec §9: "poller is an interface so tests can drive virtual time").
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Poller lets the scheduler sleep until the next timer deadline
// between ticks (spec §4.4).
type Poller interface {
	Wait(d time.Duration)
}

// RealPoller sleeps using the wall clock.
type RealPoller struct{}

func (RealPoller) Wait(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

type timerEntry struct {
	at       time.Time
	seq      uint64
	fiber    *object.Fiber
	callback func()
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is the single-threaded cooperative scheduler of spec §4.4, §5.
type Scheduler struct {
	runQueue   []*object.Fiber
	microtasks []func()
	timers     timerHeap
	poller     Poller
	clock      Clock
	executor   Executor
	log        zerolog.Logger
	seq        uint64
}

// New constructs a Scheduler. A nil poller/clock default to real time.
func New(executor Executor, poller Poller, clock Clock, log zerolog.Logger) *Scheduler {
	if poller == nil {
		poller = RealPoller{}
	}
	if clock == nil {
		clock = realClock{}
	}
	heap.Init(&timerHeap{})
	return &Scheduler{poller: poller, clock: clock, executor: executor, log: log}
}

// EnqueueFiber places f at the back of the FIFO run queue (spec §5).
func (s *Scheduler) EnqueueFiber(f *object.Fiber) {
	s.runQueue = append(s.runQueue, f)
}

// EnqueueMicrotask places fn on the LIFO microtask queue (spec §5:
// "microtasks dequeue in LIFO order before any run-queue task").
func (s *Scheduler) EnqueueMicrotask(fn func()) {
	s.microtasks = append(s.microtasks, fn)
}

// ScheduleTimerFiber arranges for f to be pushed onto the run queue
// when at is reached (spec §4.4).
func (s *Scheduler) ScheduleTimerFiber(at time.Time, f *object.Fiber) {
	s.seq++
	heap.Push(&s.timers, &timerEntry{at: at, seq: s.seq, fiber: f})
}

// ScheduleTimerCallback arranges for cb to run when at is reached
// (spec §4.4: "if it holds a callback, invoke it").
func (s *Scheduler) ScheduleTimerCallback(at time.Time, cb func()) {
	s.seq++
	heap.Push(&s.timers, &timerEntry{at: at, seq: s.seq, callback: cb})
}

func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Idle reports whether there is no more work of any kind.
func (s *Scheduler) Idle() bool {
	return len(s.runQueue) == 0 && len(s.microtasks) == 0 && len(s.timers) == 0
}

// drainExpiredTimers implements scheduler step 1 (spec §4.4): timers
// whose time <= now are drained in non-decreasing wake-time order.
func (s *Scheduler) drainExpiredTimers() {
	now := s.clock.Now()
	for len(s.timers) > 0 && !s.timers[0].at.After(now) {
		e := heap.Pop(&s.timers).(*timerEntry)
		if e.fiber != nil {
			s.EnqueueFiber(e.fiber)
		}
		if e.callback != nil {
			e.callback()
		}
	}
}

// Step runs one scheduler tick (spec §4.4's numbered steps 1-3; Step
// does not collect garbage, which happens inside vm.Alloc once the
// threshold is crossed). It reports whether
// any work was performed.
func (s *Scheduler) Step() bool {
	s.drainExpiredTimers()

	if n := len(s.microtasks); n > 0 {
		task := s.microtasks[n-1]
		s.microtasks = s.microtasks[:n-1]
		task()
		return true
	}

	if len(s.runQueue) > 0 {
		f := s.runQueue[0]
		s.runQueue = s.runQueue[1:]
		if f.State == object.FiberDead {
			return true
		}
		s.executor.Resume(f)
		return true
	}

	if len(s.timers) > 0 {
		wait := s.timers[0].at.Sub(s.clock.Now())
		s.poller.Wait(wait)
		return true
	}

	return false
}

// Run drives Step until the scheduler is fully idle (spec §6.2:
// "evaluate(chunk) ... drives the scheduler until all fibers die").
func (s *Scheduler) Run() {
	for !s.Idle() {
		s.Step()
	}
}
