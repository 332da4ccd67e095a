package async

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/scheduler"
	"github.com/kanon/serilang/pkg/value"
	"github.com/kanon/serilang/pkg/vm"
)

func newTestVM(t *testing.T) (*vm.VM, *scheduler.VirtualClock) {
	t.Helper()
	clock := scheduler.NewVirtualClock()
	m := vm.New(vm.WithClock(clock), vm.WithPoller(scheduler.ManualPoller{Clock: clock}))
	m.EnableGC()
	Register(m)
	return m, clock
}

func call(t *testing.T, m *vm.VM, name string, args ...value.Value) value.Value {
	t.Helper()
	fn, ok := m.Global(name)
	require.True(t, ok, "builtin %q not registered", name)
	obj, ok := fn.AsObject()
	require.True(t, ok)
	nf, ok := obj.(*object.NativeFunction)
	require.True(t, ok)
	f := m.NewRootFiber()
	v, err := nf.Call(f, args, nil)
	require.NoError(t, err)
	return v
}

func TestSleepResolvesAfterItsDelay(t *testing.T) {
	m, _ := newTestVM(t)
	future := call(t, m, "sleep", value.Int(10), value.Str("done"))
	obj, _ := future.AsObject()
	f := obj.(*object.Future)
	require.True(t, f.Promise.IsPending())

	m.Scheduler.Run()

	require.Equal(t, object.PromiseResolved, f.Promise.Status)
	s, _ := f.Promise.Result.AsString()
	require.Equal(t, "done", s)
}

func TestTimeoutRejectsBeforeSlowerSleep(t *testing.T) {
	m, _ := newTestVM(t)
	slow := call(t, m, "sleep", value.Int(100), value.Str("too late"))
	future := call(t, m, "timeout", slow, value.Int(10))
	obj, _ := future.AsObject()
	f := obj.(*object.Future)

	m.Scheduler.Run()

	require.Equal(t, object.PromiseRejected, f.Promise.Status)
	require.Equal(t, "Timeout after 10 ms", f.Promise.ErrMsg)
}

func TestGatherPreservesOrder(t *testing.T) {
	m, _ := newTestVM(t)
	f1 := call(t, m, "sleep", value.Int(30), value.Int(1))
	f2 := call(t, m, "sleep", value.Int(10), value.Int(2))
	f3 := call(t, m, "sleep", value.Int(20), value.Int(3))
	list := value.FromObject(object.NewList([]value.Value{f1, f2, f3}))

	future := call(t, m, "gather", list)
	obj, _ := future.AsObject()
	f := obj.(*object.Future)

	m.Scheduler.Run()

	require.Equal(t, object.PromiseResolved, f.Promise.Status)
	resultObj, _ := f.Promise.Result.AsObject()
	resultList := resultObj.(*object.List)
	require.Equal(t, 3, resultList.Len())
	for i, want := range []int64{1, 2, 3} {
		got, err := resultList.Get(int64(i))
		require.NoError(t, err)
		n, _ := got.AsInt()
		require.Equal(t, want, n)
	}
}

func TestRaceSettlesWithFastestAwaitable(t *testing.T) {
	m, _ := newTestVM(t)
	f1 := call(t, m, "sleep", value.Int(30), value.Int(1))
	f2 := call(t, m, "sleep", value.Int(5), value.Int(2))
	list := value.FromObject(object.NewList([]value.Value{f1, f2}))

	future := call(t, m, "race", list)
	obj, _ := future.AsObject()
	f := obj.(*object.Future)

	m.Scheduler.Run()

	require.Equal(t, object.PromiseResolved, f.Promise.Status)
	n, _ := f.Promise.Result.AsInt()
	require.Equal(t, int64(2), n)
}

func TestAwaitDeliversNonFutureValueSynchronously(t *testing.T) {
	m, _ := newTestVM(t)
	f := m.NewRootFiber()
	v, err := m.Await(f, value.Int(42))
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(42), n)
}
