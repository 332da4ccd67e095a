package vm

import (
	"fmt"

	"github.com/kanon/serilang/pkg/bytecode"
	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/scheduler"
	"github.com/kanon/serilang/pkg/value"
)

// upvalue capture descriptor convention (DESIGN.md): spec §6.1 leaves
// MakeClosure/MakeFiber's nupvals-descriptor encoding to the
// implementer. Each of the nupvals values popped off the stack is an
// Int: a non-negative N means "capture the enclosing frame's local
// slot N", a negative N means "share the enclosing closure's upvalue
// at index -(N+1)".
func captureUpvalues(vm *VM, fiber *object.Fiber, enclosing *object.Closure, basePtr int, nupvals uint32) ([]*object.Upvalue, error) {
	if nupvals == 0 {
		return nil, nil
	}
	descs, err := fiber.PopN(int(nupvals))
	if err != nil {
		return nil, err
	}
	ups := make([]*object.Upvalue, nupvals)
	for i, d := range descs {
		n, ok := d.AsInt()
		if !ok {
			return nil, newRuntimeError(KindTypeError, "upvalue capture descriptor must be int", nil)
		}
		if n >= 0 {
			ups[i] = fiber.FindOrCaptureUpvalue(vm.GC, basePtr+int(n))
		} else {
			idx := int(-(n + 1))
			if enclosing == nil || idx < 0 || idx >= len(enclosing.Upvalues) {
				return nil, newRuntimeError(KindIndexError, "upvalue index out of range", nil)
			}
			ups[i] = enclosing.Upvalues[idx]
		}
	}
	return ups, nil
}

// buildClosure materializes a Function+Closure for a MakeClosure or
// MakeFiber instruction (spec §6.1).
func (vm *VM) buildClosure(fiber *object.Fiber, chunk *bytecode.Chunk, enclosing *object.Closure, basePtr int, entry, nparams, nlocals, nupvals uint32) (*object.Closure, error) {
	ups, err := captureUpvalues(vm, fiber, enclosing, basePtr, nupvals)
	if err != nil {
		return nil, err
	}
	fn := &object.Function{
		Code:      chunk,
		Entry:     entry,
		NumParams: nparams,
		NumLocals: nlocals,
	}
	return Alloc(vm, object.NewClosure(fn, ups)), nil
}

// bindArgs lays out a new frame's local-slot vector from positional
// and keyword arguments (spec §3.2's Function descriptor fields).
//
// Default *values* are not modeled at the VM data level: NumDefaults
// only relaxes the minimum-arity check below. The compiler (out of
// scope per spec §1) is expected to emit a prologue that tests each
// optional local against Nil and assigns its default expression,
// mirroring how the teacher's compiler lowers default arguments.
func bindArgs(fn *object.Function, args []value.Value, kwargs []value.Value) ([]value.Value, *RuntimeError) {
	required := int(fn.NumParams - fn.NumDefaults)
	nparams := int(fn.NumParams)

	if len(args) < required {
		return nil, newRuntimeError(KindArityError,
			"too few arguments", nil)
	}
	if len(args) > nparams && !fn.HasVararg {
		return nil, newRuntimeError(KindArityError,
			"too many arguments", nil)
	}
	if len(kwargs)%2 != 0 {
		return nil, newRuntimeError(KindArityError, "malformed keyword arguments", nil)
	}
	if len(kwargs) > 0 && !fn.HasKwargs {
		return nil, newRuntimeError(KindArityError, "function does not accept keyword arguments", nil)
	}

	locals := make([]value.Value, fn.NumLocals)
	slot := 0
	for ; slot < nparams && slot < len(args); slot++ {
		locals[slot] = args[slot]
	}
	for ; slot < nparams; slot++ {
		locals[slot] = value.Nil
	}
	if fn.HasVararg {
		extra := args[min(len(args), nparams):]
		elems := make([]value.Value, len(extra))
		copy(elems, extra)
		locals[slot] = value.FromObject(object.NewList(elems))
		slot++
	}
	if fn.HasKwargs {
		d := object.NewDict()
		for i := 0; i+1 < len(kwargs); i += 2 {
			name, ok := kwargs[i].AsString()
			if !ok {
				return nil, newRuntimeError(KindTypeError, "keyword argument name must be a string", nil)
			}
			d.Set(name, kwargs[i+1])
		}
		locals[slot] = value.FromObject(d)
	}
	return locals, nil
}

// callOutcome tells the interpreter loop what happened after dispatching
// a call: either a new frame was pushed (continue the loop, it will
// pick up the new top frame) or a result was produced synchronously
// (push it and continue in the same frame) or the fiber suspended
// (native call parked it; stop running entirely).
type callOutcome int

const (
	callPushedFrame callOutcome = iota
	callProducedResult
	callSuspended
)

// dispatchCall implements spec §4.5's callable dispatch: Closure,
// BoundMethod (receiver prepended then re-dispatched), Class (allocate
// + run "init" if present), NativeClass (delegate to its Init),
// NativeFunction (run the bound Go closure directly).
func (vm *VM) dispatchCall(f *object.Fiber, callee value.Value, args, kwargs []value.Value) (callOutcome, value.Value, error) {
	obj, isObj := callee.AsObject()
	if !isObj || obj == nil {
		return callProducedResult, value.Nil, newRuntimeError(KindTypeError,
			fmt.Sprintf("%s is not callable", callee.TypeName()), nil)
	}

	switch c := obj.(type) {
	case *object.Closure:
		locals, rerr := bindArgs(c.Function, args, kwargs)
		if rerr != nil {
			return callProducedResult, value.Nil, rerr
		}
		basePtr := f.Len()
		for _, v := range locals {
			f.Push(v)
		}
		name := c.Function.Name
		if name == "" {
			name = "<anonymous>"
		}
		f.PushFrame(object.Frame{Closure: c, IP: int(c.Function.Entry), BasePtr: basePtr, Name: name})
		return callPushedFrame, value.Nil, nil

	case *object.BoundMethod:
		boundArgs := append([]value.Value{c.Receiver}, args...)
		return vm.dispatchCall(f, c.Method, boundArgs, kwargs)

	case *object.Class:
		inst := Alloc(vm, c.NewInstance())
		iv := value.FromObject(inst)
		if initFn, ok := c.LookupMethod("init"); ok {
			outcome, _, err := vm.dispatchCall(f, initFn, append([]value.Value{iv}, args...), kwargs)
			if err != nil {
				return callProducedResult, value.Nil, err
			}
			if outcome == callPushedFrame {
				// init is a Closure: tag its frame so Return delivers
				// the instance to our caller instead of init's own
				// return value (spec: "calling a class yields an
				// Instance", not whatever init computes).
				f.CurrentFrame().CtorResult = iv
				f.CurrentFrame().HasCtorResult = true
				return callPushedFrame, value.Nil, nil
			}
			return callProducedResult, iv, nil
		}
		if len(args) != 0 || len(kwargs) != 0 {
			return callProducedResult, value.Nil, newRuntimeError(KindArityError,
				fmt.Sprintf("class %s has no init and takes no arguments", c.Name), nil)
		}
		return callProducedResult, iv, nil

	case *object.NativeClass:
		if c.Init == nil {
			return callProducedResult, value.Nil, newRuntimeError(KindTypeError,
				fmt.Sprintf("native class %s is not constructible", c.Name), nil)
		}
		v, err := c.Init.Call(f, args, kwargs)
		return vm.nativeOutcome(v, err)

	case *object.NativeFunction:
		v, err := c.Call(f, args, kwargs)
		return vm.nativeOutcome(v, err)

	default:
		return callProducedResult, value.Nil, newRuntimeError(KindTypeError,
			fmt.Sprintf("%s is not callable", callee.TypeName()), nil)
	}
}

func (vm *VM) nativeOutcome(v value.Value, err error) (callOutcome, value.Value, error) {
	if err == scheduler.ErrSuspend {
		return callSuspended, value.Nil, nil
	}
	if err != nil {
		return callProducedResult, value.Nil, err
	}
	return callProducedResult, v, nil
}
