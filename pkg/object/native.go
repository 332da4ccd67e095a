package object

import (
	"fmt"
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// NativeCallFn is the dispatcher a NativeFunction invokes, already
// bound to whatever the registrar (package binding or package async)
// captured when it built the closure — a *gc.Collector for
// allocation, a *scheduler.Scheduler for suspension, a foreign Go
// value for a bound method. args/kwargs have already been popped off
// the caller's stack by the interpreter, which does no arity or keyword
// checking for natives (package binding's Func.Bind does it inside the
// closure); kwargs alternates name, value.
// Keeping the closure opaque here means package object never imports
// package binding, avoiding an import cycle (binding already imports
// object).
type NativeCallFn func(fiber *Fiber, args []value.Value, kwargs []value.Value) (value.Value, error)

// NativeFunction is a host-provided callable (spec §3.2, §4.5).
type NativeFunction struct {
	gcBase
	Name string
	Call NativeCallFn
}

func NewNativeFunction(name string, call NativeCallFn) *NativeFunction {
	return &NativeFunction{Name: name, Call: call}
}

func (n *NativeFunction) HeapKind() value.HeapKind { return value.HeapNativeFunction }
func (n *NativeFunction) Desc() string             { return fmt.Sprintf("<native function %s>", n.Name) }
func (n *NativeFunction) MarkRoots(func(value.Value)) {}
func (n *NativeFunction) Size() uintptr                { return unsafe.Sizeof(*n) }

// NativeClass is a registered host type (spec §3.2, §4.5). Calling it
// allocates a NativeInstance whose Foreign slot holds an opaque host
// object; its methods are NativeFunctions bound to a receiver.
type NativeClass struct {
	gcBase
	Name      string
	Init      *NativeFunction
	Methods   map[string]value.Value
	Finalizer func(foreign any)
	NoDelete  bool // opt out of finalization for externally-managed lifetimes
}

func NewNativeClass(name string) *NativeClass {
	return &NativeClass{Name: name, Methods: make(map[string]value.Value)}
}

func (c *NativeClass) HeapKind() value.HeapKind { return value.HeapNativeClass }
func (c *NativeClass) Desc() string             { return fmt.Sprintf("<native class %s>", c.Name) }
func (c *NativeClass) MarkRoots(mark func(value.Value)) {
	for _, m := range c.Methods {
		mark(m)
	}
}
func (c *NativeClass) Size() uintptr { return unsafe.Sizeof(*c) }

// NewInstance allocates a NativeInstance carrying foreign, tagged to
// this class for the pointer-to-foreign-T caster (spec §4.5).
func (c *NativeClass) NewInstance(foreign any) *NativeInstance {
	return &NativeInstance{Class: c, Foreign: foreign}
}

// NativeInstance pairs a NativeClass reference with an opaque foreign
// pointer and runs the class's finalizer (if any) exactly once during
// sweep (spec §3.2, §3.4).
type NativeInstance struct {
	gcBase
	Class     *NativeClass
	Foreign   any
	finalized bool
}

func (n *NativeInstance) HeapKind() value.HeapKind { return value.HeapNativeInstance }
func (n *NativeInstance) Desc() string {
	name := "?"
	if n.Class != nil {
		name = n.Class.Name
	}
	return fmt.Sprintf("<native instance of %s>", name)
}
func (n *NativeInstance) MarkRoots(func(value.Value)) {}
func (n *NativeInstance) Size() uintptr { return unsafe.Sizeof(*n) }

// Finalize implements gc.Finalizer. It runs the owning class's
// finalizer on the foreign pointer exactly once (spec §3.4, §4.5).
func (n *NativeInstance) Finalize() {
	if n.finalized || n.Class == nil || n.Class.Finalizer == nil || n.Class.NoDelete {
		return
	}
	n.finalized = true
	n.Class.Finalizer(n.Foreign)
}
