package object

import (
	"fmt"
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// Module is a named Dict representing an imported compilation unit's
// top-level bindings (spec §3.2).
type Module struct {
	gcBase
	Name    string
	Globals *Dict
}

func NewModule(name string) *Module {
	return &Module{Name: name, Globals: NewDict()}
}

func (m *Module) HeapKind() value.HeapKind { return value.HeapModule }
func (m *Module) Desc() string             { return fmt.Sprintf("<module %s>", m.Name) }
func (m *Module) MarkRoots(mark func(value.Value)) {
	mark(value.FromObject(m.Globals))
}
func (m *Module) Size() uintptr { return unsafe.Sizeof(*m) }

func (m *Module) Get(name string) (value.Value, bool) { return m.Globals.Get(name) }
func (m *Module) Set(name string, v value.Value)      { m.Globals.Set(name, v) }
