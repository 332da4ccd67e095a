package object

import (
	"fmt"
	"unsafe"

	"github.com/google/uuid"

	"github.com/kanon/serilang/pkg/gc"
	"github.com/kanon/serilang/pkg/value"
)

// FiberState is the coroutine state machine of spec §4.4:
// New -> Running -> Suspended -> Running -> Dead.
type FiberState uint8

const (
	FiberNew FiberState = iota
	FiberRunning
	FiberSuspended
	FiberDead
)

func (s FiberState) String() string {
	switch s {
	case FiberNew:
		return "New"
	case FiberRunning:
		return "Running"
	case FiberSuspended:
		return "Suspended"
	case FiberDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// ExceptionHandler is pushed by TryBegin and popped by TryEnd/Throw
// (spec §4.2, §6.1).
type ExceptionHandler struct {
	HandlerIP int
	StackTop  int
}

// Frame is a call activation: {pointer to Closure/Function, ip into
// Code, base pointer into the fiber's value stack, handler stack}
// (spec §4.2).
type Frame struct {
	Closure  *Closure
	IP       int
	BasePtr  int
	Handlers []ExceptionHandler
	Name     string // for RuntimeError stack traces (original_source call_frame.hpp)

	// HasCtorResult/CtorResult let a class constructor's init call push
	// the newly-built Instance on Return instead of init's own return
	// value (vm package's dispatchCall), without the interpreter loop
	// needing a non-uniform "is this a constructor frame" code path.
	HasCtorResult bool
	CtorResult    value.Value
}

// Fiber is a coroutine: a Value stack, a stack of call frames, an FSM
// state, a "last result" slot, and a list of open upvalues (spec §3.2).
type Fiber struct {
	gcBase
	ID           uuid.UUID
	Stack        []value.Value
	Frames       []Frame
	State        FiberState
	Last         value.Value
	Err          error
	OpenUpvalues []*Upvalue
}

const defaultStackSize = 256

// NewFiber allocates a fiber in the New state with an empty root stack.
func NewFiber() *Fiber {
	return &Fiber{ID: uuid.New(), Stack: make([]value.Value, 0, defaultStackSize)}
}

func (f *Fiber) HeapKind() value.HeapKind { return value.HeapFiber }
func (f *Fiber) Desc() string             { return fmt.Sprintf("<fiber %s>", f.State) }

func (f *Fiber) MarkRoots(mark func(value.Value)) {
	for _, v := range f.Stack {
		mark(v)
	}
	for _, fr := range f.Frames {
		if fr.Closure != nil {
			mark(value.FromObject(fr.Closure))
		}
	}
	for _, uv := range f.OpenUpvalues {
		mark(value.FromObject(uv))
	}
	mark(f.Last)
}
func (f *Fiber) Size() uintptr {
	return unsafe.Sizeof(*f) + uintptr(cap(f.Stack))*unsafe.Sizeof(value.Value{})
}

// --- Stack discipline helpers shared by the interpreter and the binder ---

func (f *Fiber) Push(v value.Value) { f.Stack = append(f.Stack, v) }

func (f *Fiber) Pop() (value.Value, error) {
	n := len(f.Stack)
	if n == 0 {
		return value.Nil, fmt.Errorf("stack underflow")
	}
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return v, nil
}

// PopN pops n values, returning them in original (bottom-to-top) order.
func (f *Fiber) PopN(n int) ([]value.Value, error) {
	if len(f.Stack) < n {
		return nil, fmt.Errorf("stack underflow: need %d, have %d", n, len(f.Stack))
	}
	start := len(f.Stack) - n
	out := make([]value.Value, n)
	copy(out, f.Stack[start:])
	f.Stack = f.Stack[:start]
	return out, nil
}

func (f *Fiber) Peek(fromTop int) (value.Value, error) {
	idx := len(f.Stack) - 1 - fromTop
	if idx < 0 || idx >= len(f.Stack) {
		return value.Nil, fmt.Errorf("stack peek out of range: %d", fromTop)
	}
	return f.Stack[idx], nil
}

// Truncate resizes the stack down to n elements (used by Return and
// by Throw's handler unwind, spec §4.2).
func (f *Fiber) Truncate(n int) {
	if n < len(f.Stack) {
		f.Stack = f.Stack[:n]
	}
}

func (f *Fiber) Len() int { return len(f.Stack) }

// LocalAt/SetLocal read and write an absolute stack slot — used by
// LoadLocal/StoreLocal, whose operand is frame.BasePtr-relative
// (spec §4.2).
func (f *Fiber) LocalAt(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(f.Stack) {
		return value.Nil, fmt.Errorf("local slot out of range: %d", idx)
	}
	return f.Stack[idx], nil
}

func (f *Fiber) SetLocal(idx int, v value.Value) error {
	if idx < 0 || idx >= len(f.Stack) {
		return fmt.Errorf("local slot out of range: %d", idx)
	}
	f.Stack[idx] = v
	return nil
}

// CurrentFrame returns a pointer to the top call frame, or nil.
func (f *Fiber) CurrentFrame() *Frame {
	if len(f.Frames) == 0 {
		return nil
	}
	return &f.Frames[len(f.Frames)-1]
}

func (f *Fiber) PushFrame(fr Frame) { f.Frames = append(f.Frames, fr) }

func (f *Fiber) PopFrame() (Frame, bool) {
	n := len(f.Frames)
	if n == 0 {
		return Frame{}, false
	}
	fr := f.Frames[n-1]
	f.Frames = f.Frames[:n-1]
	return fr, true
}

// CloseUpvaluesFrom closes every open upvalue whose captured stack
// index is >= fromSlot (spec §4.2's CloseUpvalues opcode, §9).
func (f *Fiber) CloseUpvaluesFrom(fromSlot int) {
	kept := f.OpenUpvalues[:0]
	for _, uv := range f.OpenUpvalues {
		if uv.IsOpen() && uv.StackIndex() >= fromSlot {
			uv.Close()
			continue
		}
		kept = append(kept, uv)
	}
	f.OpenUpvalues = kept
}

// FindOrCaptureUpvalue returns an existing open upvalue for slot, or
// allocates one through c, so that two closures capturing the same
// local share state (spec §3.2, §9) and every upvalue is GC-managed
// (spec §3.4: "every heap object is created only via the collector's
// allocation routine").
func (f *Fiber) FindOrCaptureUpvalue(c *gc.Collector, slot int) *Upvalue {
	for _, uv := range f.OpenUpvalues {
		if uv.IsOpen() && uv.StackIndex() == slot {
			return uv
		}
	}
	uv := gc.Alloc(c, NewOpenUpvalue(&f.Stack, slot))
	f.OpenUpvalues = append(f.OpenUpvalues, uv)
	return uv
}
