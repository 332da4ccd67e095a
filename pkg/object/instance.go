package object

import (
	"fmt"
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// Instance pairs a pointer to its Class with a mapping of fields,
// which may be either plain data or inherited/overridden methods
// (spec §3.2). Instance field lookup shadows class methods.
type Instance struct {
	gcBase
	Class  *Class
	Fields map[string]value.Value
}

func (i *Instance) HeapKind() value.HeapKind { return value.HeapInstance }
func (i *Instance) Desc() string {
	name := "?"
	if i.Class != nil {
		name = i.Class.Name
	}
	return fmt.Sprintf("<instance of %s>", name)
}

func (i *Instance) MarkRoots(mark func(value.Value)) {
	if i.Class != nil {
		mark(value.FromObject(i.Class))
	}
	for _, v := range i.Fields {
		mark(v)
	}
}
func (i *Instance) Size() uintptr { return unsafe.Sizeof(*i) }

// GetField implements member-get: instance fields shadow class methods.
func (i *Instance) GetField(name string) (value.Value, bool) {
	if v, ok := i.Fields[name]; ok {
		return v, true
	}
	if i.Class != nil {
		return i.Class.LookupMethod(name)
	}
	return value.Nil, false
}

func (i *Instance) SetField(name string, v value.Value) { i.Fields[name] = v }
