package binding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/value"
)

func TestCastForeignUnwrapsMatchingClass(t *testing.T) {
	class := object.NewNativeClass("Counter")
	inst := class.NewInstance(42)
	caster := CastForeign[int](class)

	got, err := caster(value.FromObject(inst))
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestCastForeignRejectsWrongClass(t *testing.T) {
	class := object.NewNativeClass("Counter")
	other := object.NewNativeClass("Gadget")
	inst := other.NewInstance(42)
	caster := CastForeign[int](class)

	_, err := caster(value.FromObject(inst))
	require.Error(t, err)
}

func TestOutForeignWrapsHostValue(t *testing.T) {
	class := object.NewNativeClass("Counter")
	out := OutForeign[int](class)

	v, err := out(7)
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok)
	inst, ok := obj.(*object.NativeInstance)
	require.True(t, ok)
	require.Equal(t, 7, inst.Foreign)
	require.Same(t, class, inst.Class)
}

func TestCastFloatWidensInt(t *testing.T) {
	f, err := CastFloat(value.Int(3))
	require.NoError(t, err)
	require.Equal(t, float64(3), f)
}
