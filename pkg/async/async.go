// Package async implements the built-in sleep/timeout/gather/race
// primitives of spec §4.4, plus the "await" global that
// vm.Await backs (there is no AWAIT opcode — spec §6.1's 34-opcode
// instruction set has none; the compiler, an external collaborator
// per spec §1, is expected to lower `await expr` to a call of this
// builtin).
package async

import (
	"fmt"
	"time"

	"github.com/kanon/serilang/pkg/binding"
	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/value"
	"github.com/kanon/serilang/pkg/vm"
)

// Register installs sleep, timeout, gather, race, and await as VM
// globals, and mirrors sleep, timeout, gather, and race (not await)
// under a natively-implemented "async" module so vm.Import("async")
// resolves without an Importer.
func Register(m *vm.VM) {
	sleep := sleepFunc(m)
	timeout := timeoutFunc(m)
	gather := gatherFunc(m)
	race := raceFunc(m)

	m.RegisterBuiltin("sleep", value.FromObject(binding.NativeFn(m, sleep)))
	m.RegisterBuiltin("timeout", value.FromObject(binding.NativeFn(m, timeout)))
	m.RegisterBuiltin("gather", value.FromObject(binding.NativeFn(m, gather)))
	m.RegisterBuiltin("race", value.FromObject(binding.NativeFn(m, race)))
	m.RegisterBuiltin("await", value.FromObject(awaitFunc(m)))

	binding.NewModuleBuilder(m, "async").
		Func(sleep).
		Func(timeout).
		Func(gather).
		Func(race).
		Build()
}

// outcome is the settled result of an awaitable, independent of
// whether it arrived synchronously (a non-Future value) or via a
// Promise waker.
type outcome struct {
	resolved bool
	value    value.Value
	errMsg   string
}

// observe normalizes v into a settled outcome delivered to cb exactly
// once: immediately if v isn't a Future or its Promise already
// settled, otherwise via a registered waker (spec §4.4's await
// contract, shared by timeout/gather/race below).
func observe(v value.Value, cb func(outcome)) {
	obj, ok := v.AsObject()
	if !ok || obj == nil {
		cb(outcome{resolved: true, value: v})
		return
	}
	future, ok := obj.(*object.Future)
	if !ok {
		cb(outcome{resolved: true, value: v})
		return
	}
	deliver := func(p *object.Promise) {
		if p.Status == object.PromiseResolved {
			cb(outcome{resolved: true, value: p.Result})
		} else {
			cb(outcome{resolved: false, errMsg: p.ErrMsg})
		}
	}
	if !future.Promise.IsPending() {
		deliver(future.Promise)
		return
	}
	future.Promise.AddWaker(deliver)
}

// awaitFunc implements the top-level await(value) builtin: it calls
// vm.Await, which either returns the value synchronously (non-Future)
// or signals suspension via scheduler.ErrSuspend.
func awaitFunc(m *vm.VM) *object.NativeFunction {
	call := func(f *object.Fiber, args, kwargs []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Nil, fmt.Errorf("await() takes exactly one argument, got %d", len(args))
		}
		return m.Await(f, args[0])
	}
	return vm.Alloc(m, object.NewNativeFunction("await", call))
}

// sleepFunc: `sleep(ms, result = nil)` schedules a callback at
// now+ms that resolves the returned future to result (spec §4.4).
func sleepFunc(m *vm.VM) *binding.Func {
	spec, err := binding.NewSpec("sleep").
		Param("ms").
		Param("result").Default(func() (any, error) { return value.Nil, nil }).
		Build()
	if err != nil {
		panic(err)
	}
	return &binding.Func{
		Spec:    spec,
		Casters: []binding.Caster{binding.CastInt, binding.CastValue},
		Out:     binding.OutValue,
		Host: func(args []any) (any, error) {
			ms := args[0].(int64)
			result := args[1].(value.Value)

			p := object.NewPromise()
			p.AddRoot(result)
			future := vm.Alloc(m, object.NewFuture(p))

			m.Scheduler.ScheduleTimerCallback(m.Scheduler.Now().Add(time.Duration(ms)*time.Millisecond), func() {
				p.Resolve(result)
			})
			return value.FromObject(future), nil
		},
	}
}

// timeoutFunc: `timeout(awaitable, ms)` schedules a timer that rejects
// the future with "Timeout after <ms> ms"; it also awaits awaitable,
// forwarding its outcome — whichever settles the returned promise
// first wins, since Promise transition is monotonic (spec §3.3, §4.4).
func timeoutFunc(m *vm.VM) *binding.Func {
	spec, err := binding.NewSpec("timeout").Param("awaitable").Param("ms").Build()
	if err != nil {
		panic(err)
	}
	return &binding.Func{
		Spec:    spec,
		Casters: []binding.Caster{binding.CastValue, binding.CastInt},
		Out:     binding.OutValue,
		Host: func(args []any) (any, error) {
			awaitable := args[0].(value.Value)
			ms := args[1].(int64)

			p := object.NewPromise()
			future := vm.Alloc(m, object.NewFuture(p))

			m.Scheduler.ScheduleTimerCallback(m.Scheduler.Now().Add(time.Duration(ms)*time.Millisecond), func() {
				p.Reject(fmt.Sprintf("Timeout after %d ms", ms))
			})
			observe(awaitable, func(o outcome) {
				if o.resolved {
					p.Resolve(o.value)
				} else {
					p.Reject(o.errMsg)
				}
			})
			return value.FromObject(future), nil
		},
	}
}

// listElements casts a List Value to its backing slice, the structural
// recognition spec §4.5 uses for vararg/kwarg carriers, reused here
// for gather/race's list-of-awaitables parameter.
func listElements(v value.Value) (any, error) {
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", v.TypeName())
	}
	l, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", v.TypeName())
	}
	return append([]value.Value(nil), l.Elements...), nil
}

// gatherFunc: `gather(list)` resolves with a list of results when all
// awaitables succeed; rejects on the first failure, with remaining
// results left in their pre-assigned positions (spec §4.4).
func gatherFunc(m *vm.VM) *binding.Func {
	spec, err := binding.NewSpec("gather").Param("list").Build()
	if err != nil {
		panic(err)
	}
	return &binding.Func{
		Spec:    spec,
		Casters: []binding.Caster{listElements},
		Out:     binding.OutValue,
		Host: func(args []any) (any, error) {
			items := args[0].([]value.Value)

			p := object.NewPromise()
			future := vm.Alloc(m, object.NewFuture(p))
			results := make([]value.Value, len(items))

			if len(items) == 0 {
				p.Resolve(value.FromObject(vm.Alloc(m, object.NewList(nil))))
				return value.FromObject(future), nil
			}

			remaining := len(items)
			for i, it := range items {
				i := i
				observe(it, func(o outcome) {
					if !o.resolved {
						p.Reject(o.errMsg)
						return
					}
					results[i] = o.value
					remaining--
					if remaining == 0 {
						p.Resolve(value.FromObject(vm.Alloc(m, object.NewList(results))))
					}
				})
			}
			return value.FromObject(future), nil
		},
	}
}

// raceFunc: `race(list)` settles with the first settled awaitable's
// outcome (spec §4.4); later settlements are no-ops thanks to
// Promise's monotonic transition.
func raceFunc(m *vm.VM) *binding.Func {
	spec, err := binding.NewSpec("race").Param("list").Build()
	if err != nil {
		panic(err)
	}
	return &binding.Func{
		Spec:    spec,
		Casters: []binding.Caster{listElements},
		Out:     binding.OutValue,
		Host: func(args []any) (any, error) {
			items := args[0].([]value.Value)

			p := object.NewPromise()
			future := vm.Alloc(m, object.NewFuture(p))
			for _, it := range items {
				observe(it, func(o outcome) {
					if o.resolved {
						p.Resolve(o.value)
					} else {
						p.Reject(o.errMsg)
					}
				})
			}
			return value.FromObject(future), nil
		},
	}
}
