package binding

import (
	"fmt"
	"reflect"

	"github.com/kanon/serilang/pkg/value"
)

// typeCasters maps a Go parameter type to the Caster FromFunc uses for
// it (FromFunc always converts results with OutValue). Extend this
// table (or fall back to NewSpec/Func built by hand) for host types it
// doesn't recognize.
var typeCasters = map[reflect.Type]Caster{
	reflect.TypeOf(bool(false)):  CastBool,
	reflect.TypeOf(int64(0)):     CastInt,
	reflect.TypeOf(float64(0)):   CastFloat,
	reflect.TypeOf(string("")):   CastString,
	reflect.TypeOf(value.Nil):    CastValue,
}

var varargType = reflect.TypeOf([]value.Value{})
var kwargsType = reflect.TypeOf(map[string]value.Value{})

// FromFunc derives a Func from a plain Go function by reflection,
// recognizing a trailing []value.Value parameter as the vararg carrier
// and a trailing map[string]value.Value parameter as the kwarg carrier
// (spec §4.5: "Registration can also derive a spec automatically from
// a host signature"). Parameter names are synthesized (arg0, arg1, …)
// since Go reflection does not retain them, and error messages use
// those synthesized names.
func FromFunc(name string, goFn any) (*Func, error) {
	rv := reflect.ValueOf(goFn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, fmt.Errorf("binding.FromFunc: %s is not a function", name)
	}
	if rt.NumOut() > 1 {
		return nil, fmt.Errorf("binding.FromFunc: %s must return at most one value", name)
	}

	numIn := rt.NumIn()
	hasKwargs := numIn > 0 && rt.In(numIn-1) == kwargsType
	if hasKwargs {
		numIn--
	}
	hasVararg := numIn > 0 && rt.In(numIn-1) == varargType
	if hasVararg {
		numIn--
	}

	spec := NewSpec(name)
	casters := make([]Caster, 0, numIn)
	for i := 0; i < numIn; i++ {
		pt := rt.In(i)
		c, ok := typeCasters[pt]
		if !ok {
			return nil, fmt.Errorf("binding.FromFunc: %s: no caster registered for parameter type %s", name, pt)
		}
		spec.Param(fmt.Sprintf("arg%d", i))
		casters = append(casters, c)
	}
	if hasVararg {
		spec.Vararg("args")
	}
	if hasKwargs {
		spec.Kwargs("kwargs")
	}
	built, err := spec.Build()
	if err != nil {
		return nil, err
	}

	host := func(args []any) (any, error) {
		in := make([]reflect.Value, 0, rt.NumIn())
		for i := 0; i < numIn; i++ {
			in = append(in, reflect.ValueOf(args[i]))
		}
		if hasVararg {
			va, _ := args[numIn].([]value.Value)
			in = append(in, reflect.ValueOf(va))
		}
		if hasKwargs {
			idx := numIn
			if hasVararg {
				idx++
			}
			kw, _ := args[idx].(map[string]value.Value)
			in = append(in, reflect.ValueOf(kw))
		}
		out := rv.Call(in)
		if len(out) == 0 {
			return nil, nil
		}
		return out[0].Interface(), nil
	}

	return &Func{Spec: built, Casters: casters, Out: OutValue, Host: host}, nil
}
