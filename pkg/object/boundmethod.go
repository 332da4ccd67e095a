package object

import (
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// BoundMethod pairs a receiver Value with a callable; when called, it
// inserts the receiver as the first positional argument (spec §3.2).
type BoundMethod struct {
	gcBase
	Receiver value.Value
	Method   value.Value
}

func NewBoundMethod(receiver, method value.Value) *BoundMethod {
	return &BoundMethod{Receiver: receiver, Method: method}
}

func (b *BoundMethod) HeapKind() value.HeapKind { return value.HeapBoundMethod }
func (b *BoundMethod) Desc() string             { return "<bound method>" }

func (b *BoundMethod) MarkRoots(mark func(value.Value)) {
	mark(b.Receiver)
	mark(b.Method)
}
func (b *BoundMethod) Size() uintptr { return unsafe.Sizeof(*b) }
