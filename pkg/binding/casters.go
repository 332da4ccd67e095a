package binding

import (
	"fmt"

	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/value"
)

// Caster converts a bound Value into the host type a Go function
// expects, or raises a type error with a human-readable description
// (spec §4.5, step 5).
type Caster func(v value.Value) (any, error)

// OutCaster converts a host function's return value back into a Value
// (spec §4.5, step 6).
type OutCaster func(v any) (value.Value, error)

func typeError(want string, got value.Value) error {
	return fmt.Errorf("expected %s, got %s", want, got.TypeName())
}

// CastNil accepts only Nil.
func CastNil(v value.Value) (any, error) {
	if !v.IsNil() {
		return nil, typeError("nil", v)
	}
	return nil, nil
}

// CastBool accepts Bool.
func CastBool(v value.Value) (any, error) {
	b, ok := v.AsBool()
	if !ok {
		return nil, typeError("bool", v)
	}
	return b, nil
}

// CastInt accepts Int.
func CastInt(v value.Value) (any, error) {
	i, ok := v.AsInt()
	if !ok {
		return nil, typeError("int", v)
	}
	return i, nil
}

// CastFloat accepts Float, widening an Int argument the way the
// interpreter's own numeric promotion does (spec §4.1: "Int × Double →
// Double").
func CastFloat(v value.Value) (any, error) {
	if f, ok := v.AsFloat(); ok {
		return f, nil
	}
	if i, ok := v.AsInt(); ok {
		return float64(i), nil
	}
	return nil, typeError("float", v)
}

// CastString accepts Str.
func CastString(v value.Value) (any, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, typeError("string", v)
	}
	return s, nil
}

// CastValue passes the Value through unchanged, for natives that want
// to inspect or re-store an arbitrary script value.
func CastValue(v value.Value) (any, error) {
	return v, nil
}

// CastForeign unwraps a NativeInstance of the given class, verifying
// its class tag, and returns its Foreign pointer asserted to T (spec
// §4.5: "pointer-to-foreign-T ... unwraps a Native Instance, verifying
// the foreign type tag").
func CastForeign[T any](class *object.NativeClass) Caster {
	return func(v value.Value) (any, error) {
		obj, ok := v.AsObject()
		if !ok {
			return nil, typeError("native instance of "+class.Name, v)
		}
		inst, ok := obj.(*object.NativeInstance)
		if !ok || inst.Class != class {
			return nil, typeError("native instance of "+class.Name, v)
		}
		t, ok := inst.Foreign.(T)
		if !ok {
			return nil, fmt.Errorf("foreign value of %s has wrong underlying type", class.Name)
		}
		return t, nil
	}
}

// OutValue passes a Value through unchanged.
func OutValue(v any) (value.Value, error) {
	if val, ok := v.(value.Value); ok {
		return val, nil
	}
	return value.Nil, fmt.Errorf("binding: expected value.Value result, got %T", v)
}

// OutNil discards v and returns Nil.
func OutNil(any) (value.Value, error) { return value.Nil, nil }

// OutBool wraps a bool result.
func OutBool(v any) (value.Value, error) {
	b, ok := v.(bool)
	if !ok {
		return value.Nil, fmt.Errorf("binding: expected bool result, got %T", v)
	}
	return value.Bool(b), nil
}

// OutInt wraps an int64-ish result.
func OutInt(v any) (value.Value, error) {
	switch n := v.(type) {
	case int64:
		return value.Int(n), nil
	case int:
		return value.Int(int64(n)), nil
	default:
		return value.Nil, fmt.Errorf("binding: expected int result, got %T", v)
	}
}

// OutFloat wraps a float64 result.
func OutFloat(v any) (value.Value, error) {
	f, ok := v.(float64)
	if !ok {
		return value.Nil, fmt.Errorf("binding: expected float result, got %T", v)
	}
	return value.Float(f), nil
}

// OutString wraps a string result.
func OutString(v any) (value.Value, error) {
	s, ok := v.(string)
	if !ok {
		return value.Nil, fmt.Errorf("binding: expected string result, got %T", v)
	}
	return value.Str(s), nil
}

// OutForeign wraps a host value of type T in a fresh NativeInstance of
// class, for natives that allocate and return a new foreign object
// (the instance is not registered with a collector here, and
// Func.Invoke returns it as is).
func OutForeign[T any](class *object.NativeClass) OutCaster {
	return func(v any) (value.Value, error) {
		t, ok := v.(T)
		if !ok {
			return value.Nil, fmt.Errorf("binding: expected %s foreign result, got %T", class.Name, v)
		}
		return value.FromObject(class.NewInstance(t)), nil
	}
}
