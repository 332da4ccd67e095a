package binding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/value"
)

func greetSpec(t *testing.T) *Func {
	t.Helper()
	spec, err := NewSpec("greet").
		Param("name").
		Param("greeting").Default(func() (any, error) { return "hello", nil }).
		Build()
	require.NoError(t, err)
	return &Func{
		Spec:    spec,
		Casters: []Caster{CastString, CastString},
		Out:     OutString,
		Host: func(args []any) (any, error) {
			return args[1].(string) + ", " + args[0].(string), nil
		},
	}
}

func TestDispatchPositional(t *testing.T) {
	fn := greetSpec(t)
	v, err := fn.Invoke([]value.Value{value.Str("ada")}, nil)
	require.NoError(t, err)
	s, _ := v.AsString()
	require.Equal(t, "hello, ada", s)
}

func TestDispatchKeywordOverridesDefault(t *testing.T) {
	fn := greetSpec(t)
	v, err := fn.Invoke(
		[]value.Value{value.Str("ada")},
		[]value.Value{value.Str("greeting"), value.Str("hi")},
	)
	require.NoError(t, err)
	s, _ := v.AsString()
	require.Equal(t, "hi, ada", s)
}

func TestDispatchMissingRequiredArgument(t *testing.T) {
	fn := greetSpec(t)
	_, err := fn.Invoke(nil, nil)
	require.Error(t, err)
}

func TestDispatchDuplicateKeyword(t *testing.T) {
	fn := greetSpec(t)
	_, err := fn.Invoke(
		[]value.Value{value.Str("ada")},
		[]value.Value{value.Str("name"), value.Str("x")},
	)
	require.Error(t, err)
}

func TestDispatchVarargCarriesOverflow(t *testing.T) {
	spec, err := NewSpec("sum3").Param("a").Vararg("rest").Build()
	require.NoError(t, err)
	fn := &Func{
		Spec:    spec,
		Casters: []Caster{CastInt},
		Out:     OutInt,
		Host: func(args []any) (any, error) {
			total := args[0].(int64)
			for _, v := range args[1].([]value.Value) {
				n, _ := v.AsInt()
				total += n
			}
			return total, nil
		},
	}
	v, err := fn.Invoke([]value.Value{value.Int(1), value.Int(2), value.Int(3)}, nil)
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(6), n)
}

func TestDispatchUnexpectedKeywordWithoutKwargsCarrier(t *testing.T) {
	fn := greetSpec(t)
	_, err := fn.Invoke(
		[]value.Value{value.Str("ada")},
		[]value.Value{value.Str("bogus"), value.Str("x")},
	)
	require.Error(t, err)
}

func TestDispatchKwargsCarrierCollectsUnknownNames(t *testing.T) {
	spec, err := NewSpec("f").Param("a").Kwargs("opts").Build()
	require.NoError(t, err)
	fn := &Func{
		Spec:    spec,
		Casters: []Caster{CastInt},
		Out:     OutInt,
		Host: func(args []any) (any, error) {
			opts := args[1].(map[string]value.Value)
			return int64(len(opts)), nil
		},
	}
	v, err := fn.Invoke(
		[]value.Value{value.Int(1)},
		[]value.Value{value.Str("x"), value.Int(1), value.Str("y"), value.Int(2)},
	)
	require.NoError(t, err)
	n, _ := v.AsInt()
	require.Equal(t, int64(2), n)
}
