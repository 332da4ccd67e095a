package object

import (
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// Code is the chunk-holding side of the Function descriptor (spec
// §3.2). It is a minimal interface rather than a direct
// *bytecode.Chunk field so package object never imports package
// bytecode (bytecode already imports value; object importing
// bytecode too would be harmless acyclically, but keeping object
// chunk-agnostic keeps the heap-object model reusable across any
// code representation, matching spec §4.2's framing of Code as an
// external concern to the object model).
type Code interface {
	// CodeLen exists only so Code has a distinguishing method;
	// package vm holds the concrete *bytecode.Chunk.
	CodeLen() int
}

// Function is a descriptor referring to a Code plus entry offset,
// required-parameter count, default count, vararg/kwarg flags, and
// local-slot count (spec §3.2).
type Function struct {
	gcBase
	Name        string
	Code        Code
	Entry       uint32
	NumParams   uint32
	NumDefaults uint32
	NumLocals   uint32
	HasVararg   bool
	HasKwargs   bool
}

func (f *Function) HeapKind() value.HeapKind { return value.HeapFunction }
func (f *Function) Desc() string {
	if f.Name != "" {
		return "<function " + f.Name + ">"
	}
	return "<function>"
}
func (f *Function) MarkRoots(func(value.Value)) {}
func (f *Function) Size() uintptr               { return unsafe.Sizeof(*f) }

// Closure is a Function plus a vector of captured Upvalues (spec §3.2).
type Closure struct {
	gcBase
	Function *Function
	Upvalues []*Upvalue
}

func NewClosure(fn *Function, upvalues []*Upvalue) *Closure {
	return &Closure{Function: fn, Upvalues: upvalues}
}

func (c *Closure) HeapKind() value.HeapKind { return value.HeapClosure }
func (c *Closure) Desc() string {
	if c.Function != nil {
		return c.Function.Desc()
	}
	return "<closure>"
}
func (c *Closure) MarkRoots(mark func(value.Value)) {
	if c.Function != nil {
		mark(value.FromObject(c.Function))
	}
	for _, uv := range c.Upvalues {
		mark(value.FromObject(uv))
	}
}
func (c *Closure) Size() uintptr { return unsafe.Sizeof(*c) }
