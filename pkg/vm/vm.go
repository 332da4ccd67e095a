// Package vm implements the fetch-decode-execute loop, call/return,
// fiber scheduling glue, and module-import machinery of spec §4, §5, §6.
package vm

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kanon/serilang/pkg/bytecode"
	"github.com/kanon/serilang/pkg/gc"
	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/scheduler"
	"github.com/kanon/serilang/pkg/value"
)

// Importer resolves a module name to a loaded Chunk. The actual
// lexer/parser/compiler front end is an external collaborator (spec
// §1's compiler boundary); VM only needs something that hands back
// bytecode for a module path.
type Importer func(fs afero.Fs, name string) (*bytecode.Chunk, error)

// VM is the embeddable runtime object of spec §6.2.
type VM struct {
	GC        *gc.Collector
	Scheduler *scheduler.Scheduler

	globals  map[string]value.Value
	builtins map[string]value.Value

	fibers []*object.Fiber // VM-wide root set: every fiber not yet GC'd

	chunk *bytecode.Chunk // the module chunk currently executing

	modules  *lru.Cache[string, *object.Module]
	importer Importer
	fs       afero.Fs

	poller scheduler.Poller
	clock  scheduler.Clock

	log zerolog.Logger
}

// Option configures a VM at construction time.
type Option func(*VM)

func WithLogger(l zerolog.Logger) Option { return func(v *VM) { v.log = l } }
func WithFilesystem(fs afero.Fs) Option  { return func(v *VM) { v.fs = fs } }
func WithImporter(imp Importer) Option   { return func(v *VM) { v.importer = imp } }

// WithPoller/WithClock substitute the scheduler's wait and wall-clock
// sources, for tests that drive virtual time deterministically
// instead of real timer delays (spec §4.4, §9).
func WithPoller(p scheduler.Poller) Option { return func(v *VM) { v.poller = p } }
func WithClock(c scheduler.Clock) Option   { return func(v *VM) { v.clock = c } }
func WithModuleCacheSize(n int) Option {
	return func(v *VM) {
		c, err := lru.New[string, *object.Module](n)
		if err == nil {
			v.modules = c
		}
	}
}

// New constructs a VM with disabled GC (spec §4.3: disabled during
// construction) and empty globals/builtins; callers enable GC once
// registration is complete.
func New(opts ...Option) *VM {
	vm := &VM{
		globals:  make(map[string]value.Value),
		builtins: make(map[string]value.Value),
		fs:       afero.NewOsFs(),
	}
	for _, o := range opts {
		o(vm)
	}
	vm.GC = gc.New(vm.log)
	vm.GC.Disable()
	if vm.modules == nil {
		c, _ := lru.New[string, *object.Module](32)
		vm.modules = c
	}
	vm.Scheduler = scheduler.New(vm, vm.poller, vm.clock, vm.log)
	return vm
}

// EnableGC turns on implicit collection (call after registering builtins).
func (vm *VM) EnableGC() { vm.GC.Enable() }

// RegisterBuiltin exposes a global Value under name to every fiber
// (spec §4.5: "natives are reachable as ordinary globals").
func (vm *VM) RegisterBuiltin(name string, v value.Value) {
	vm.builtins[name] = v
}

// RegisterModule caches a pre-built Module so `import(name)` can find
// it without invoking the Importer (used for natively-implemented
// modules such as pkg/async's, spec §4.4).
func (vm *VM) RegisterModule(name string, mod *object.Module) {
	vm.modules.Add(name, mod)
}

// SetGlobal/Global give embedders direct access to the module-level
// global namespace (spec §4.2's LoadGlobal/StoreGlobal target).
func (vm *VM) SetGlobal(name string, v value.Value) { vm.globals[name] = v }
func (vm *VM) Global(name string) (value.Value, bool) {
	v, ok := vm.globals[name]
	if ok {
		return v, true
	}
	v, ok = vm.builtins[name]
	return v, ok
}

// Alloc allocates a GC-managed object through the VM's collector,
// collecting first if the threshold was already crossed by a prior
// allocation. The check runs BEFORE linking obj into the heap list,
// never after: obj is not yet reachable from any root at this point
// (it isn't on a fiber's stack, in globals, or in another object's
// fields yet), so collecting right after allocating it would sweep it
// as garbage before its caller gets a chance to root it.
func Alloc[T gc.GCObject](vm *VM, obj T) T {
	if vm.GC.ShouldCollect() {
		vm.CollectGarbage()
	}
	return gc.Alloc(vm.GC, obj)
}

// CollectGarbage runs one mark-and-sweep cycle, rooted at the VM's
// globals, builtins, live fibers (a fiber's own MarkRoots walks its
// stack/frames/upvalues, which in turn keeps pending-promise roots
// alive via object.Future.MarkRoots), and every cached Module (the
// cache is keyed by import name): a cached module must survive
// collection for as long as it stays in the cache, independent of whether any fiber currently references it.
func (vm *VM) CollectGarbage() {
	vm.GC.Collect(func(mark func(value.Value)) {
		for _, v := range vm.globals {
			mark(v)
		}
		for _, v := range vm.builtins {
			mark(v)
		}
		for _, f := range vm.fibers {
			mark(value.FromObject(f))
		}
		for _, mod := range vm.modules.Values() {
			mark(value.FromObject(mod))
		}
	})
	vm.reapDeadFibers()
}

func (vm *VM) reapDeadFibers() {
	kept := vm.fibers[:0]
	for _, f := range vm.fibers {
		if f.State != object.FiberDead {
			kept = append(kept, f)
		}
	}
	vm.fibers = kept
}

// NewRootFiber allocates a fiber through the collector and tracks it
// as a VM-wide GC root until it dies.
func (vm *VM) NewRootFiber() *object.Fiber {
	f := Alloc(vm, object.NewFiber())
	vm.fibers = append(vm.fibers, f)
	return f
}

// Evaluate loads chunk as the module's top-level code, runs it to
// completion on a fresh root fiber, and drains the scheduler so every
// fiber/timer/microtask it spawns also runs to completion (spec
// §6.2: "evaluate(chunk) ... drives the scheduler until all fibers die").
func (vm *VM) Evaluate(chunk *bytecode.Chunk) (value.Value, error) {
	vm.chunk = chunk
	fn := &object.Function{Name: "<module>", Code: chunk, Entry: 0}
	closure := Alloc(vm, object.NewClosure(fn, nil))
	fiber := vm.NewRootFiber()
	fiber.PushFrame(object.Frame{Closure: closure, IP: 0, BasePtr: 0, Name: "<module>"})
	fiber.State = object.FiberRunning

	vm.Resume(fiber)
	vm.Scheduler.Run()

	if fiber.Err != nil {
		return value.Nil, fiber.Err
	}
	return fiber.Last, nil
}

// Import loads and caches a module by name, invoking the Importer on
// a cache miss; the cache is keyed by the import name as given. Import
// is a Go method: no script-callable import global is registered.
func (vm *VM) Import(name string) (*object.Module, error) {
	if m, ok := vm.modules.Get(name); ok {
		return m, nil
	}
	if vm.importer == nil {
		return nil, fmt.Errorf("import: no importer configured for module %q", name)
	}
	chunk, err := vm.importer(vm.fs, name)
	if err != nil {
		return nil, fmt.Errorf("import %q: %w", name, err)
	}

	savedChunk := vm.chunk
	vm.chunk = chunk
	defer func() { vm.chunk = savedChunk }()

	mod := Alloc(vm, object.NewModule(name))
	fn := &object.Function{Name: name, Code: chunk, Entry: 0}
	closure := Alloc(vm, object.NewClosure(fn, nil))
	fiber := vm.NewRootFiber()
	fiber.PushFrame(object.Frame{Closure: closure, IP: 0, BasePtr: 0, Name: name})
	fiber.State = object.FiberRunning
	vm.Resume(fiber)
	if fiber.Err != nil {
		return nil, fiber.Err
	}
	// The module's globals after its top-level code ran become its
	// exported namespace (spec: "a module's globals ARE its exports").
	for k, v := range vm.globals {
		mod.Set(k, v)
	}
	vm.modules.Add(name, mod)
	return mod, nil
}
