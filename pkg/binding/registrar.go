package binding

import (
	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/value"
	"github.com/kanon/serilang/pkg/vm"
)

// NativeFn wraps fn as a GC-allocated object.NativeFunction, the
// handle scripts call (spec §3.2, §4.5).
func NativeFn(m *vm.VM, fn *Func) *object.NativeFunction {
	call := func(_ *object.Fiber, args, kwargs []value.Value) (value.Value, error) {
		return fn.Invoke(args, kwargs)
	}
	return vm.Alloc(m, object.NewNativeFunction(fn.Spec.Name, call))
}

// ModuleBuilder assembles an object.Module out of bound Funcs and
// plain values, then registers it with the VM's module cache so
// import(name) resolves it without invoking the Importer — the
// pattern pkg/async uses for its natively-implemented module (spec
// §4.2, §4.4).
type ModuleBuilder struct {
	vm  *vm.VM
	mod *object.Module
}

func NewModuleBuilder(m *vm.VM, name string) *ModuleBuilder {
	return &ModuleBuilder{vm: m, mod: vm.Alloc(m, object.NewModule(name))}
}

func (b *ModuleBuilder) Func(fn *Func) *ModuleBuilder {
	b.mod.Set(fn.Spec.Name, value.FromObject(NativeFn(b.vm, fn)))
	return b
}

func (b *ModuleBuilder) Value(name string, v value.Value) *ModuleBuilder {
	b.mod.Set(name, v)
	return b
}

func (b *ModuleBuilder) Build() *object.Module {
	b.vm.RegisterModule(b.mod.Name, b.mod)
	return b.mod
}

// ClassBuilder assembles an object.NativeClass: an __init__, methods
// bound to a receiver, and an optional finalizer (spec §4.5).
// Registered methods must declare "self" as their first parameter; the
// convention is to cast it with binding.CastForeign[T](class) so the
// Go method receives the unwrapped foreign receiver — "the binder
// inserts self as the first positional" (spec §4.5).
type ClassBuilder struct {
	vm    *vm.VM
	class *object.NativeClass
}

func NewClassBuilder(m *vm.VM, name string) *ClassBuilder {
	return &ClassBuilder{vm: m, class: object.NewNativeClass(name)}
}

// Class returns the NativeClass under construction, for Init/Method
// funcs that need to close over it (e.g. via binding.CastForeign).
func (b *ClassBuilder) Class() *object.NativeClass { return b.class }

func (b *ClassBuilder) Init(fn *Func) *ClassBuilder {
	b.class.Init = NativeFn(b.vm, fn)
	return b
}

func (b *ClassBuilder) Method(fn *Func) *ClassBuilder {
	b.class.Methods[fn.Spec.Name] = value.FromObject(NativeFn(b.vm, fn))
	return b
}

func (b *ClassBuilder) Finalizer(fin func(foreign any)) *ClassBuilder {
	b.class.Finalizer = fin
	return b
}

// NoDelete opts the class out of finalization, for instances whose
// lifetime is managed elsewhere (spec §4.5).
func (b *ClassBuilder) NoDelete() *ClassBuilder {
	b.class.NoDelete = true
	return b
}

func (b *ClassBuilder) Build() *object.NativeClass {
	return b.class
}
