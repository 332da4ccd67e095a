package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/value"
)

func TestListGetSetBounds(t *testing.T) {
	l := NewList([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	require.Equal(t, 3, l.Len())

	v, err := l.Get(1)
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(2), n)

	require.NoError(t, l.Set(0, value.Int(99)))
	v, _ = l.Get(0)
	n, _ = v.AsInt()
	require.Equal(t, int64(99), n)

	_, err = l.Get(10)
	require.Error(t, err)
	require.Error(t, l.Set(-1, value.Nil))
}

func TestListMarkRootsVisitsElements(t *testing.T) {
	l := NewList([]value.Value{value.Int(1), value.Str("x")})
	var seen []value.Value
	l.MarkRoots(func(v value.Value) { seen = append(seen, v) })
	require.Len(t, seen, 2)
}

func TestDictGetSetDelete(t *testing.T) {
	d := NewDict()
	d.Set("a", value.Int(1))
	v, ok := d.Get("a")
	require.True(t, ok)
	n, _ := v.AsInt()
	require.Equal(t, int64(1), n)

	d.Delete("a")
	_, ok = d.Get("a")
	require.False(t, ok)
}

func TestClassLookupMethodWalksSuperclassChain(t *testing.T) {
	base := NewClass("Base", nil)
	base.Methods["greet"] = value.Str("base-greet")
	derived := NewClass("Derived", base)

	m, ok := derived.LookupMethod("greet")
	require.True(t, ok)
	s, _ := m.AsString()
	require.Equal(t, "base-greet", s)

	derived.Methods["greet"] = value.Str("derived-greet")
	m, ok = derived.LookupMethod("greet")
	require.True(t, ok)
	s, _ = m.AsString()
	require.Equal(t, "derived-greet", s)

	_, ok = derived.LookupMethod("missing")
	require.False(t, ok)
}

func TestClassNewInstanceHasEmptyFields(t *testing.T) {
	c := NewClass("Point", nil)
	inst := c.NewInstance()
	require.Equal(t, c, inst.Class)
	_, ok := inst.GetField("x")
	require.False(t, ok)
	inst.SetField("x", value.Int(5))
	v, ok := inst.GetField("x")
	require.True(t, ok)
	n, _ := v.AsInt()
	require.Equal(t, int64(5), n)
}

func TestFiberStackPushPopPeek(t *testing.T) {
	f := NewFiber()
	f.Push(value.Int(1))
	f.Push(value.Int(2))
	f.Push(value.Int(3))
	require.Equal(t, 3, f.Len())

	top, err := f.Peek(0)
	require.NoError(t, err)
	n, _ := top.AsInt()
	require.Equal(t, int64(3), n)

	vs, err := f.PopN(2)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	require.Equal(t, 1, f.Len())

	_, err = f.Pop()
	require.NoError(t, err)
	_, err = f.Pop()
	require.Error(t, err)
}

func TestFiberLocalAtOutOfRange(t *testing.T) {
	f := NewFiber()
	f.Push(value.Int(1))
	f.PushFrame(Frame{BasePtr: 0})
	_, err := f.LocalAt(5)
	require.Error(t, err)
}

func TestUpvalueOpenCloseRoundTrip(t *testing.T) {
	stack := []value.Value{value.Int(10), value.Int(20)}
	u := NewOpenUpvalue(&stack, 1)
	require.True(t, u.IsOpen())
	n, _ := u.Get().AsInt()
	require.Equal(t, int64(20), n)

	u.Set(value.Int(42))
	n, _ = stack[1].AsInt()
	require.Equal(t, int64(42), n)

	u.Close()
	require.False(t, u.IsOpen())
	n, _ = u.Get().AsInt()
	require.Equal(t, int64(42), n)

	// Mutating the backing slot after Close must not affect the upvalue.
	stack[1] = value.Int(999)
	n, _ = u.Get().AsInt()
	require.Equal(t, int64(42), n)
}

func TestPromiseResolveIsMonotonicAndRunsWakersOnce(t *testing.T) {
	p := NewPromise()
	var calls int
	p.AddWaker(func(p *Promise) { calls++ })

	p.Resolve(value.Int(1))
	require.Equal(t, PromiseResolved, p.Status)
	require.Equal(t, 1, calls)

	// Further resolution/rejection after settling must not re-fire wakers
	// or change status (spec §3.3: monotonic transition).
	p.Resolve(value.Int(2))
	p.Reject("nope")
	require.Equal(t, PromiseResolved, p.Status)
	require.Equal(t, 1, calls)
}

func TestPromiseAddWakerAfterSettleFiresImmediatelyOnNextDrain(t *testing.T) {
	p := NewPromise()
	p.Resolve(value.Int(7))
	var called bool
	p.AddWaker(func(p *Promise) { called = true })
	require.True(t, called)
}

func TestNativeInstanceFinalizeRunsHook(t *testing.T) {
	class := NewNativeClass("Resource")
	var closed bool
	class.Finalizer = func(foreign any) { closed = true }
	inst := class.NewInstance(42)
	inst.Finalize()
	require.True(t, closed)
}

func TestModuleGetSetDelegatesToGlobals(t *testing.T) {
	m := NewModule("m")
	m.Set("x", value.Int(1))
	v, ok := m.Get("x")
	require.True(t, ok)
	n, _ := v.AsInt()
	require.Equal(t, int64(1), n)
}
