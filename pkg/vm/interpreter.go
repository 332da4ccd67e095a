package vm

import (
	"fmt"

	"github.com/kanon/serilang/pkg/bytecode"
	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/value"
)

// Resume implements scheduler.Executor: it runs f's bytecode, starting
// from its current top frame, until the fiber yields, awaits (via a
// native call returning scheduler.ErrSuspend), dies, or errors (spec
// §4.4, §5).
func (vm *VM) Resume(f *object.Fiber) {
	f.State = object.FiberRunning
	rerr := vm.run(f)
	if rerr != nil {
		f.Err = rerr
		f.State = object.FiberDead
	}
}

// run is the fetch-decode-execute loop (spec §4.2, §6.1). It returns
// when f's frame stack empties (Dead), a native call suspends it
// (Suspended), an OpYield suspends it (Suspended), or an unhandled
// RuntimeError propagates out of every frame (Dead, f.Err set by run's
// caller via the returned error).
func (vm *VM) run(f *object.Fiber) *RuntimeError {
	for {
		frame := f.CurrentFrame()
		if frame == nil {
			f.State = object.FiberDead
			return nil
		}
		chunk, ok := frame.Closure.Function.Code.(*bytecode.Chunk)
		if !ok {
			return newRuntimeError(KindGeneric, "function code is not a bytecode chunk", vm.trace(f))
		}
		if frame.IP >= len(chunk.Code) {
			if rerr := vm.doReturn(f, value.Nil); rerr != nil {
				return rerr
			}
			continue
		}

		op := bytecode.Op(chunk.Code[frame.IP])
		ip := frame.IP + 1

		var rerr *RuntimeError
		switch op {
		case bytecode.OpNop:

		case bytecode.OpPush:
			var idx uint32
			idx, ip = chunk.ReadU32(ip)
			frame.IP = ip
			c, err := chunk.Constant(idx)
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			f.Push(c)
			continue

		case bytecode.OpDup:
			var ofs uint8
			ofs, ip = chunk.ReadU8(ip)
			frame.IP = ip
			v, err := f.Peek(int(ofs))
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			f.Push(v)
			continue

		case bytecode.OpSwap:
			frame.IP = ip
			a, err1 := f.Pop()
			b, err2 := f.Pop()
			if err1 != nil || err2 != nil {
				return newRuntimeError(KindGeneric, "stack underflow in SWAP", vm.trace(f))
			}
			f.Push(a)
			f.Push(b)
			continue

		case bytecode.OpPop:
			var count uint8
			count, ip = chunk.ReadU8(ip)
			frame.IP = ip
			if _, err := f.PopN(int(count)); err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			continue

		case bytecode.OpUnaryOp:
			var opb uint8
			opb, ip = chunk.ReadU8(ip)
			frame.IP = ip
			v, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			res, operr := value.ApplyUnary(value.UnaryOp(opb), v)
			if operr != nil {
				return newRuntimeError(KindTypeError, operr.Error(), vm.trace(f))
			}
			f.Push(res)
			continue

		case bytecode.OpBinaryOp:
			var opb uint8
			opb, ip = chunk.ReadU8(ip)
			frame.IP = ip
			rhs, err1 := f.Pop()
			lhs, err2 := f.Pop()
			if err1 != nil || err2 != nil {
				return newRuntimeError(KindGeneric, "stack underflow in BINARY_OP", vm.trace(f))
			}
			res, operr := value.ApplyBinary(value.BinaryOp(opb), lhs, rhs)
			if operr != nil {
				return newRuntimeError(KindTypeError, operr.Error(), vm.trace(f))
			}
			f.Push(res)
			continue

		case bytecode.OpLoadLocal:
			var slot uint8
			slot, ip = chunk.ReadU8(ip)
			frame.IP = ip
			v, lerr := f.LocalAt(frame.BasePtr + int(slot))
			if lerr != nil {
				return newRuntimeError(KindIndexError, lerr.Error(), vm.trace(f))
			}
			f.Push(v)
			continue

		case bytecode.OpStoreLocal:
			var slot uint8
			slot, ip = chunk.ReadU8(ip)
			frame.IP = ip
			v, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			if serr := f.SetLocal(frame.BasePtr+int(slot), v); serr != nil {
				return newRuntimeError(KindIndexError, serr.Error(), vm.trace(f))
			}
			continue

		case bytecode.OpLoadGlobal:
			var nameIdx uint32
			nameIdx, ip = chunk.ReadU32(ip)
			frame.IP = ip
			name, err := vm.constName(chunk, nameIdx, f)
			if err != nil {
				return err
			}
			v, ok := vm.Global(name)
			if !ok {
				return newRuntimeError(KindNameError, fmt.Sprintf("undefined global %q", name), vm.trace(f))
			}
			f.Push(v)
			continue

		case bytecode.OpStoreGlobal:
			var nameIdx uint32
			nameIdx, ip = chunk.ReadU32(ip)
			frame.IP = ip
			name, nerr := vm.constName(chunk, nameIdx, f)
			if nerr != nil {
				return nerr
			}
			v, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			vm.SetGlobal(name, v)
			continue

		case bytecode.OpLoadUpvalue:
			var slot uint8
			slot, ip = chunk.ReadU8(ip)
			frame.IP = ip
			if int(slot) >= len(frame.Closure.Upvalues) {
				return newRuntimeError(KindIndexError, "upvalue slot out of range", vm.trace(f))
			}
			f.Push(frame.Closure.Upvalues[slot].Get())
			continue

		case bytecode.OpStoreUpvalue:
			var slot uint8
			slot, ip = chunk.ReadU8(ip)
			frame.IP = ip
			v, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			if int(slot) >= len(frame.Closure.Upvalues) {
				return newRuntimeError(KindIndexError, "upvalue slot out of range", vm.trace(f))
			}
			frame.Closure.Upvalues[slot].Set(v)
			continue

		case bytecode.OpCloseUpvalues:
			var fromSlot uint8
			fromSlot, ip = chunk.ReadU8(ip)
			frame.IP = ip
			f.CloseUpvaluesFrom(frame.BasePtr + int(fromSlot))
			continue

		case bytecode.OpJump:
			var offset int32
			offset, ip = chunk.ReadI32(ip)
			frame.IP = ip + int(offset)
			continue

		case bytecode.OpJumpIfTrue:
			var offset int32
			offset, ip = chunk.ReadI32(ip)
			frame.IP = ip
			cond, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			if cond.IsTruthy() {
				frame.IP = ip + int(offset)
			}
			continue

		case bytecode.OpJumpIfFalse:
			var offset int32
			offset, ip = chunk.ReadI32(ip)
			frame.IP = ip
			cond, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			if !cond.IsTruthy() {
				frame.IP = ip + int(offset)
			}
			continue

		case bytecode.OpReturn:
			frame.IP = ip
			v, err := f.Pop()
			if err != nil {
				v = value.Nil
			}
			if rerr = vm.doReturn(f, v); rerr != nil {
				return rerr
			}
			continue

		case bytecode.OpMakeClosure:
			var entry, nparams, nlocals, nupvals uint32
			entry, ip = chunk.ReadU32(ip)
			nparams, ip = chunk.ReadU32(ip)
			nlocals, ip = chunk.ReadU32(ip)
			nupvals, ip = chunk.ReadU32(ip)
			frame.IP = ip
			closure, err := vm.buildClosure(f, chunk, frame.Closure, frame.BasePtr, entry, nparams, nlocals, nupvals)
			if err != nil {
				return asRuntimeError(err, vm.trace(f))
			}
			f.Push(value.FromObject(closure))
			continue

		case bytecode.OpMakeFiber:
			var entry, nparams, nlocals, nupvals uint32
			entry, ip = chunk.ReadU32(ip)
			nparams, ip = chunk.ReadU32(ip)
			nlocals, ip = chunk.ReadU32(ip)
			nupvals, ip = chunk.ReadU32(ip)
			frame.IP = ip
			closure, err := vm.buildClosure(f, chunk, frame.Closure, frame.BasePtr, entry, nparams, nlocals, nupvals)
			if err != nil {
				return asRuntimeError(err, vm.trace(f))
			}
			child := vm.NewRootFiber()
			child.PushFrame(object.Frame{Closure: closure, IP: int(entry), BasePtr: 0, Name: closure.Desc()})
			f.Push(value.FromObject(child))
			continue

		case bytecode.OpResume:
			var nargs uint8
			nargs, ip = chunk.ReadU8(ip)
			frame.IP = ip
			args, err := f.PopN(int(nargs))
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			fv, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			result, rerr2 := vm.resumeChild(fv, args)
			if rerr2 != nil {
				return rerr2
			}
			f.Push(result)
			continue

		case bytecode.OpYield:
			frame.IP = ip
			v, err := f.Pop()
			if err != nil {
				v = value.Nil
			}
			f.Last = v
			f.State = object.FiberSuspended
			return nil

		case bytecode.OpCall, bytecode.OpTailCall:
			var nargs, nkwargs uint8
			if op == bytecode.OpCall {
				nargs, ip = chunk.ReadU8(ip)
				nkwargs, ip = chunk.ReadU8(ip)
			} else {
				nargs, ip = chunk.ReadU8(ip)
			}
			frame.IP = ip

			kwargs, err := f.PopN(int(nkwargs) * 2)
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			args, err := f.PopN(int(nargs))
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			callee, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			n := vm.GC.Protect(kwargs...)
			n += vm.GC.Protect(args...)
			n += vm.GC.Protect(callee)

			if op == bytecode.OpTailCall {
				popped, _ := f.PopFrame()
				f.CloseUpvaluesFrom(popped.BasePtr)
				f.Truncate(popped.BasePtr)
			}

			outcome, result, derr := vm.dispatchCall(f, callee, args, kwargs)
			vm.GC.Release(n)
			if derr != nil {
				return asRuntimeError(derr, vm.trace(f))
			}
			switch outcome {
			case callPushedFrame:
				continue
			case callSuspended:
				f.State = object.FiberSuspended
				return nil
			default:
				f.Push(result)
				continue
			}

		case bytecode.OpMakeList:
			var n uint32
			n, ip = chunk.ReadU32(ip)
			frame.IP = ip
			elems, err := f.PopN(int(n))
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			nprot := vm.GC.Protect(elems...)
			list := Alloc(vm, object.NewList(append([]value.Value(nil), elems...)))
			vm.GC.Release(nprot)
			f.Push(value.FromObject(list))
			continue

		case bytecode.OpMakeDict:
			var nPairs uint32
			nPairs, ip = chunk.ReadU32(ip)
			frame.IP = ip
			pairs, err := f.PopN(int(nPairs) * 2)
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			nprot := vm.GC.Protect(pairs...)
			d := Alloc(vm, object.NewDict())
			vm.GC.Release(nprot)
			for i := 0; i+1 < len(pairs); i += 2 {
				key, ok := pairs[i].AsString()
				if !ok {
					return newRuntimeError(KindTypeError, "dict key must be a string", vm.trace(f))
				}
				d.Set(key, pairs[i+1])
			}
			f.Push(value.FromObject(d))
			continue

		case bytecode.OpMakeClass:
			var nameIdx uint32
			var nmethods uint16
			nameIdx, ip = chunk.ReadU32(ip)
			nmethods, ip = chunk.ReadU16(ip)
			frame.IP = ip
			name, nerr := vm.constName(chunk, nameIdx, f)
			if nerr != nil {
				return nerr
			}
			pairs, err := f.PopN(int(nmethods) * 2)
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			nprot := vm.GC.Protect(pairs...)
			cls := Alloc(vm, object.NewClass(name, nil))
			vm.GC.Release(nprot)
			for i := 0; i+1 < len(pairs); i += 2 {
				mname, ok := pairs[i].AsString()
				if !ok {
					return newRuntimeError(KindTypeError, "method name must be a string", vm.trace(f))
				}
				cls.Methods[mname] = pairs[i+1]
			}
			f.Push(value.FromObject(cls))
			continue

		case bytecode.OpGetField:
			var nameIdx uint32
			nameIdx, ip = chunk.ReadU32(ip)
			frame.IP = ip
			name, nerr := vm.constName(chunk, nameIdx, f)
			if nerr != nil {
				return nerr
			}
			recv, err := f.Pop()
			if err != nil {
				return newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
			}
			v, gerr := vm.getField(recv, name)
			if gerr != nil {
				return asRuntimeError(gerr, vm.trace(f))
			}
			f.Push(v)
			continue

		case bytecode.OpSetField:
			var nameIdx uint32
			nameIdx, ip = chunk.ReadU32(ip)
			frame.IP = ip
			name, nerr := vm.constName(chunk, nameIdx, f)
			if nerr != nil {
				return nerr
			}
			v, err1 := f.Pop()
			recv, err2 := f.Pop()
			if err1 != nil || err2 != nil {
				return newRuntimeError(KindGeneric, "stack underflow in SET_FIELD", vm.trace(f))
			}
			if serr := vm.setField(recv, name, v); serr != nil {
				return asRuntimeError(serr, vm.trace(f))
			}
			continue

		case bytecode.OpGetItem:
			frame.IP = ip
			key, err1 := f.Pop()
			recv, err2 := f.Pop()
			if err1 != nil || err2 != nil {
				return newRuntimeError(KindGeneric, "stack underflow in GET_ITEM", vm.trace(f))
			}
			v, gerr := vm.getItem(recv, key)
			if gerr != nil {
				return asRuntimeError(gerr, vm.trace(f))
			}
			f.Push(v)
			continue

		case bytecode.OpSetItem:
			frame.IP = ip
			v, err1 := f.Pop()
			key, err2 := f.Pop()
			recv, err3 := f.Pop()
			if err1 != nil || err2 != nil || err3 != nil {
				return newRuntimeError(KindGeneric, "stack underflow in SET_ITEM", vm.trace(f))
			}
			if serr := vm.setItem(recv, key, v); serr != nil {
				return asRuntimeError(serr, vm.trace(f))
			}
			continue

		case bytecode.OpThrow:
			frame.IP = ip
			v, err := f.Pop()
			if err != nil {
				v = value.Nil
			}
			if handled := vm.unwindToHandler(f, v); !handled {
				uerr := newRuntimeError(KindUnhandledException, v.Str(), vm.trace(f))
				uerr.Payload = v
				return uerr
			}
			continue

		case bytecode.OpTryBegin:
			var offset int32
			offset, ip = chunk.ReadI32(ip)
			frame.IP = ip
			handlerIP := ip + int(offset)
			frame.Handlers = append(frame.Handlers, object.ExceptionHandler{HandlerIP: handlerIP, StackTop: f.Len()})
			continue

		case bytecode.OpTryEnd:
			frame.IP = ip
			if n := len(frame.Handlers); n > 0 {
				frame.Handlers = frame.Handlers[:n-1]
			}
			continue

		default:
			return newRuntimeError(KindGeneric, fmt.Sprintf("unknown opcode %d", op), vm.trace(f))
		}
	}
}

// doReturn pops the current frame, closes its upvalues, restores the
// caller's stack, and delivers the return value — or, if the fiber has
// no more frames, finishes it (spec §4.2, §6.1's RETURN stack effect).
func (vm *VM) doReturn(f *object.Fiber, v value.Value) *RuntimeError {
	frame, ok := f.PopFrame()
	if !ok {
		f.Last = v
		f.State = object.FiberDead
		return nil
	}
	f.CloseUpvaluesFrom(frame.BasePtr)
	f.Truncate(frame.BasePtr)
	if frame.HasCtorResult {
		v = frame.CtorResult
	}
	if f.CurrentFrame() == nil {
		f.Last = v
		f.State = object.FiberDead
		return nil
	}
	f.Push(v)
	return nil
}

// unwindToHandler implements THROW (spec §4.2): search frames
// top-down, within each frame search its handler stack top-down,
// truncate to the handler's recorded stack depth, push the thrown
// value, and resume at the handler's IP. Returns false if no frame in
// this fiber has a live handler.
func (vm *VM) unwindToHandler(f *object.Fiber, thrown value.Value) bool {
	for len(f.Frames) > 0 {
		frame := f.CurrentFrame()
		if n := len(frame.Handlers); n > 0 {
			h := frame.Handlers[n-1]
			frame.Handlers = frame.Handlers[:n-1]
			f.Truncate(h.StackTop)
			f.Push(thrown)
			frame.IP = h.HandlerIP
			return true
		}
		popped, _ := f.PopFrame()
		f.CloseUpvaluesFrom(popped.BasePtr)
		f.Truncate(popped.BasePtr)
	}
	return false
}

// resumeChild transfers control to a child fiber (OpResume, spec
// §4.4): New fibers receive args as their first locals; Suspended
// fibers receive args as the value(s) their paused Yield evaluates to.
// Runs the child inline (a plain recursive call: fibers are explicit
// frame stacks, not Go-stack coroutines, so this does not grow
// unboundedly with Serilang call depth) until it yields, finishes, or
// errors, then delivers one value to the resumer.
func (vm *VM) resumeChild(fv value.Value, args []value.Value) (value.Value, *RuntimeError) {
	obj, ok := fv.AsObject()
	child, isFiber := obj.(*object.Fiber)
	if !ok || !isFiber {
		return value.Nil, newRuntimeError(KindTypeError, "RESUME target is not a fiber", nil)
	}
	switch child.State {
	case object.FiberDead:
		return value.Nil, newRuntimeError(KindGeneric, "cannot resume a dead fiber", nil)
	case object.FiberRunning:
		return value.Nil, newRuntimeError(KindGeneric, "fiber is already running", nil)
	case object.FiberNew:
		frame := child.CurrentFrame()
		for i, a := range args {
			if i >= int(frame.Closure.Function.NumParams) {
				break
			}
			child.Push(a)
		}
	case object.FiberSuspended:
		for _, a := range args {
			child.Push(a)
		}
	}

	vm.Resume(child)

	if child.Err != nil {
		rerr, ok := child.Err.(*RuntimeError)
		if !ok {
			rerr = newRuntimeError(KindGeneric, child.Err.Error(), nil)
		}
		return value.Nil, rerr
	}
	return child.Last, nil
}

// constName fetches a constant and requires it to be a string — used
// for every name-carrying operand (spec §6.1's name_index operands).
func (vm *VM) constName(chunk *bytecode.Chunk, idx uint32, f *object.Fiber) (string, *RuntimeError) {
	c, err := chunk.Constant(idx)
	if err != nil {
		return "", newRuntimeError(KindGeneric, err.Error(), vm.trace(f))
	}
	s, ok := c.AsString()
	if !ok {
		return "", newRuntimeError(KindTypeError, "name operand is not a string constant", vm.trace(f))
	}
	return s, nil
}

// trace snapshots f's current frames into StackFrame records for a
// RuntimeError (spec §7, grounded on the teacher's errors.go).
func (vm *VM) trace(f *object.Fiber) []StackFrame {
	out := make([]StackFrame, 0, len(f.Frames))
	for _, fr := range f.Frames {
		out = append(out, StackFrame{Name: fr.Name, IP: fr.IP})
	}
	return out
}

// asRuntimeError coerces a generic error (possibly already a
// *RuntimeError from a nested dispatch) into one, attaching trace if absent.
func asRuntimeError(err error, trace []StackFrame) *RuntimeError {
	if rerr, ok := err.(*RuntimeError); ok {
		if len(rerr.StackTrace) == 0 {
			rerr.StackTrace = trace
		}
		return rerr
	}
	return newRuntimeError(KindGeneric, err.Error(), trace)
}
