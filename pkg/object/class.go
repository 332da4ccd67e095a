package object

import (
	"fmt"
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// Class is a name plus a mapping from method name to callable Value
// (spec §3.2). Calling a class constructs an Instance whose fields
// start as a copy of the class's methods.
type Class struct {
	gcBase
	Name    string
	Methods map[string]value.Value
	Super   *Class // nil for a root class
}

func NewClass(name string, super *Class) *Class {
	return &Class{Name: name, Methods: make(map[string]value.Value), Super: super}
}

func (c *Class) HeapKind() value.HeapKind { return value.HeapClass }
func (c *Class) Desc() string             { return fmt.Sprintf("<class %s>", c.Name) }

func (c *Class) MarkRoots(mark func(value.Value)) {
	for _, m := range c.Methods {
		mark(m)
	}
	if c.Super != nil {
		mark(value.FromObject(c.Super))
	}
}
func (c *Class) Size() uintptr { return unsafe.Sizeof(*c) }

// LookupMethod resolves a method name, walking the superclass chain —
// spec §3.2: "a class never owns instance state", but methods are
// still inherited.
func (c *Class) LookupMethod(name string) (value.Value, bool) {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods[name]; ok {
			return m, true
		}
	}
	return value.Nil, false
}

// NewInstance allocates field storage seeded from the class's methods
// (spec §3.2: "fields start as a copy of the class's methods").
func (c *Class) NewInstance() *Instance {
	fields := make(map[string]value.Value, len(c.Methods))
	for cls := c; cls != nil; cls = cls.Super {
		for name, m := range cls.Methods {
			if _, exists := fields[name]; !exists {
				fields[name] = m
			}
		}
	}
	return &Instance{Class: c, Fields: fields}
}
