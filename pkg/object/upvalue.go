package object

import (
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// Upvalue is either "open" (a pointer into a live fiber's stack slot)
// or "closed" (owning a Value copy) — spec §3.2, §9. When a frame
// returns or CloseUpvalues runs, every open upvalue whose stack slot
// is at or above the threshold is closed in place.
type Upvalue struct {
	gcBase
	open  bool
	stack *[]value.Value
	index int
	value value.Value
}

// NewOpenUpvalue captures a live slot in stack at index.
func NewOpenUpvalue(stack *[]value.Value, index int) *Upvalue {
	return &Upvalue{open: true, stack: stack, index: index}
}

func (u *Upvalue) HeapKind() value.HeapKind { return value.HeapUpvalue }
func (u *Upvalue) Desc() string {
	if u.open {
		return "<upvalue open>"
	}
	return "<upvalue closed>"
}
func (u *Upvalue) MarkRoots(mark func(value.Value)) { mark(u.Get()) }
func (u *Upvalue) Size() uintptr                    { return unsafe.Sizeof(*u) }

// IsOpen reports whether u still points into a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.open }

// StackIndex returns the captured slot index; only meaningful while open.
func (u *Upvalue) StackIndex() int { return u.index }

// Get reads through the upvalue: the live stack slot while open, the
// owned copy once closed.
func (u *Upvalue) Get() value.Value {
	if u.open {
		return (*u.stack)[u.index]
	}
	return u.value
}

// Set writes through the upvalue.
func (u *Upvalue) Set(v value.Value) {
	if u.open {
		(*u.stack)[u.index] = v
		return
	}
	u.value = v
}

// Close promotes the upvalue to owning storage, copying the current
// slot value and detaching from the stack (spec §9: "Upvalues as a
// separate arena").
func (u *Upvalue) Close() {
	if !u.open {
		return
	}
	u.value = (*u.stack)[u.index]
	u.open = false
	u.stack = nil
}
