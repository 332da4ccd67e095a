package vm

import (
	"fmt"

	"github.com/kanon/serilang/pkg/object"
	"github.com/kanon/serilang/pkg/value"
)

// getField implements GET_FIELD (spec §4.2, §6.1): attribute access on
// an Instance or NativeInstance shadows inherited methods with own
// fields, and auto-binds a resolved method into a BoundMethod so a
// later CALL carries the receiver as implicit first argument —
// mirroring how the teacher's message-send dispatch always carried a
// receiver alongside the selector.
func (vm *VM) getField(recv value.Value, name string) (value.Value, error) {
	obj, ok := recv.AsObject()
	if !ok || obj == nil {
		return value.Nil, fmt.Errorf("%s has no field %q", recv.TypeName(), name)
	}
	switch r := obj.(type) {
	case *object.Instance:
		if v, ok := r.Fields[name]; ok {
			return v, nil
		}
		if r.Class != nil {
			if m, ok := r.Class.LookupMethod(name); ok {
				n := vm.GC.Protect(recv, m)
				bm := Alloc(vm, object.NewBoundMethod(recv, m))
				vm.GC.Release(n)
				return value.FromObject(bm), nil
			}
		}
		return value.Nil, fmt.Errorf("instance of %s has no field %q", r.Class.Name, name)

	case *object.NativeInstance:
		if r.Class != nil {
			if m, ok := r.Class.Methods[name]; ok {
				n := vm.GC.Protect(recv, m)
				bm := Alloc(vm, object.NewBoundMethod(recv, m))
				vm.GC.Release(n)
				return value.FromObject(bm), nil
			}
		}
		return value.Nil, fmt.Errorf("native instance has no field %q", name)

	case *object.Class:
		if m, ok := r.LookupMethod(name); ok {
			return m, nil
		}
		return value.Nil, fmt.Errorf("class %s has no field %q", r.Name, name)

	case *object.NativeClass:
		if m, ok := r.Methods[name]; ok {
			return m, nil
		}
		return value.Nil, fmt.Errorf("native class %s has no field %q", r.Name, name)

	case *object.Module:
		if v, ok := r.Get(name); ok {
			return v, nil
		}
		return value.Nil, fmt.Errorf("module %s has no field %q", r.Name, name)

	default:
		return value.Nil, fmt.Errorf("%s has no field %q", recv.TypeName(), name)
	}
}

// setField implements SET_FIELD: Instance fields and Module globals are
// the only mutable attribute targets; a NativeInstance has no settable
// fields.
func (vm *VM) setField(recv value.Value, name string, v value.Value) error {
	obj, ok := recv.AsObject()
	if !ok || obj == nil {
		return fmt.Errorf("%s has no settable field %q", recv.TypeName(), name)
	}
	switch r := obj.(type) {
	case *object.Instance:
		r.SetField(name, v)
		return nil
	case *object.Module:
		r.Set(name, v)
		return nil
	default:
		return fmt.Errorf("%s has no settable field %q", recv.TypeName(), name)
	}
}

// getItem implements GET_ITEM: integer indexing into a List, string
// indexing into a Dict (spec §3.2, §4.2).
func (vm *VM) getItem(recv, key value.Value) (value.Value, error) {
	obj, ok := recv.AsObject()
	if !ok || obj == nil {
		return value.Nil, fmt.Errorf("%s is not subscriptable", recv.TypeName())
	}
	switch r := obj.(type) {
	case *object.List:
		idx, ok := key.AsInt()
		if !ok {
			return value.Nil, fmt.Errorf("list index must be an int, got %s", key.TypeName())
		}
		return r.Get(idx)
	case *object.Dict:
		k, ok := key.AsString()
		if !ok {
			return value.Nil, fmt.Errorf("dict key must be a string, got %s", key.TypeName())
		}
		v, found := r.Get(k)
		if !found {
			return value.Nil, fmt.Errorf("key %q not found", k)
		}
		return v, nil
	default:
		return value.Nil, fmt.Errorf("%s is not subscriptable", recv.TypeName())
	}
}

// setItem implements SET_ITEM.
func (vm *VM) setItem(recv, key, v value.Value) error {
	obj, ok := recv.AsObject()
	if !ok || obj == nil {
		return fmt.Errorf("%s does not support item assignment", recv.TypeName())
	}
	switch r := obj.(type) {
	case *object.List:
		idx, ok := key.AsInt()
		if !ok {
			return fmt.Errorf("list index must be an int, got %s", key.TypeName())
		}
		return r.Set(idx, v)
	case *object.Dict:
		k, ok := key.AsString()
		if !ok {
			return fmt.Errorf("dict key must be a string, got %s", key.TypeName())
		}
		r.Set(k, v)
		return nil
	default:
		return fmt.Errorf("%s does not support item assignment", recv.TypeName())
	}
}
