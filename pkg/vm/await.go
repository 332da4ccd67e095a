package vm

import (
	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/scheduler"
	"github.com/kanon/serilang/pkg/value"
)

// Await implements the await contract of spec §4.4. There is no AWAIT
// opcode in spec §6.1's fixed instruction set — the compiler (an
// external collaborator, spec §1) is expected to lower `await expr` to
// a call of the "await" builtin that package binding/async registers,
// which calls this method. Non-Future values deliver synchronously;
// a pending Future suspends the fiber by returning scheduler.ErrSuspend,
// to be resumed by the waker registered below when the promise settles.
func (vm *VM) Await(f *object.Fiber, v value.Value) (value.Value, error) {
	obj, ok := v.AsObject()
	if !ok || obj == nil {
		return v, nil
	}
	future, ok := obj.(*object.Future)
	if !ok {
		return v, nil
	}
	p := future.Promise

	deliver := func(p *object.Promise) {
		if p.Status == object.PromiseRejected {
			if !vm.unwindToHandler(f, value.Str(p.ErrMsg)) {
				f.Err = newRuntimeError(KindUnhandledException, p.ErrMsg, vm.trace(f))
				f.State = object.FiberDead
				return
			}
		} else {
			f.Push(p.Result)
		}
		vm.Scheduler.EnqueueFiber(f)
	}

	if !p.IsPending() {
		vm.Scheduler.EnqueueMicrotask(func() { deliver(p) })
		return value.Nil, scheduler.ErrSuspend
	}
	p.AddWaker(deliver)
	return value.Nil, scheduler.ErrSuspend
}
