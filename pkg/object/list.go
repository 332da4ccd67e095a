package object

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// List is the ordered-sequence-of-Values heap kind (spec §3.2).
type List struct {
	gcBase
	Elements []value.Value
}

func NewList(elems []value.Value) *List { return &List{Elements: elems} }

func (l *List) HeapKind() value.HeapKind { return value.HeapList }

func (l *List) Desc() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.Desc()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *List) MarkRoots(mark func(value.Value)) {
	for _, e := range l.Elements {
		mark(e)
	}
}

func (l *List) Size() uintptr {
	return unsafe.Sizeof(*l) + uintptr(cap(l.Elements))*unsafe.Sizeof(value.Value{})
}

// Len reports the element count.
func (l *List) Len() int { return len(l.Elements) }

// Get implements item-get by integer index (spec §3.2).
func (l *List) Get(i int64) (value.Value, error) {
	if i < 0 || i >= int64(len(l.Elements)) {
		return value.Nil, fmt.Errorf("list index out of range: %d", i)
	}
	return l.Elements[i], nil
}

// Set implements item-set by integer index.
func (l *List) Set(i int64, v value.Value) error {
	if i < 0 || i >= int64(len(l.Elements)) {
		return fmt.Errorf("list index out of range: %d", i)
	}
	l.Elements[i] = v
	return nil
}

// Append implements the host-API append mentioned in spec §3.2.
func (l *List) Append(v value.Value) { l.Elements = append(l.Elements, v) }
