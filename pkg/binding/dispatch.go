package binding

import (
	"fmt"

	"github.com/kanon/serilang/pkg/value"
)

// bound is the outcome of steps 1-4 of spec §4.5's dispatch: a Value
// per declared parameter (a slot whose filled flag is false meaning
// "use its default"), plus
// whatever overflowed into the vararg/kwarg carriers.
type bound struct {
	slots   []value.Value
	filled  []bool
	vararg  []value.Value
	kwargs  map[string]value.Value
}

// bindValues implements steps 1-4: arity validation, positional copy,
// keyword binding, and overflow into vararg/kwarg carriers. Defaults
// are resolved by the caller (step 4 continued) since they produce a
// host value directly, not a Value.
func bindValues(spec *Spec, args []value.Value, kwargs []value.Value) (*bound, error) {
	if len(kwargs)%2 != 0 {
		return nil, fmt.Errorf("binding %s: malformed keyword arguments", spec.Name)
	}
	n := len(spec.Params)
	b := &bound{slots: make([]value.Value, n), filled: make([]bool, n)}

	// Step 1-2: positionals.
	if len(args) > n && !spec.HasVararg {
		return nil, fmt.Errorf("%s() takes at most %d positional argument(s), got %d", spec.Name, n, len(args))
	}
	for i := 0; i < n && i < len(args); i++ {
		b.slots[i] = args[i]
		b.filled[i] = true
	}
	if len(args) > n {
		b.vararg = append(b.vararg, args[n:]...)
	}

	// Step 1 (continued): collect keyword pairs, rejecting duplicates.
	kwSeen := make(map[string]value.Value, len(kwargs)/2)
	kwOrder := make([]string, 0, len(kwargs)/2)
	for i := 0; i+1 < len(kwargs); i += 2 {
		name, ok := kwargs[i].AsString()
		if !ok {
			return nil, fmt.Errorf("%s(): keyword argument name must be a string", spec.Name)
		}
		if _, dup := kwSeen[name]; dup {
			return nil, fmt.Errorf("%s() got multiple values for keyword argument %q", spec.Name, name)
		}
		kwSeen[name] = kwargs[i+1]
		kwOrder = append(kwOrder, name)
	}

	// Step 3: bind keywords to named parameters or overflow to kwargs.
	for _, name := range kwOrder {
		v := kwSeen[name]
		idx, ok := spec.paramIndex(name)
		if !ok || spec.Params[idx].PositionalOnly {
			if !spec.HasKwargs {
				return nil, fmt.Errorf("%s() got an unexpected keyword argument %q", spec.Name, name)
			}
			if b.kwargs == nil {
				b.kwargs = make(map[string]value.Value)
			}
			b.kwargs[name] = v
			continue
		}
		if b.filled[idx] {
			return nil, fmt.Errorf("%s() got multiple values for argument %q", spec.Name, name)
		}
		b.slots[idx] = v
		b.filled[idx] = true
	}

	return b, nil
}

// Func is a fully-specified native binding: the spec, a caster per
// declared parameter, an outbound caster for the return value, and
// the Go function to invoke once every argument has been cast (spec
// §4.5 step 5-6).
type Func struct {
	Spec    *Spec
	Casters []Caster
	Out     OutCaster
	Host    func(args []any) (any, error)
}

// Bind runs the full dispatch algorithm, returning the Go values to
// pass to Host, in parameter order, followed by a vararg carrier
// ([]value.Value) if Spec.HasVararg and a kwarg carrier
// (map[string]value.Value) if Spec.HasKwargs — both recognized
// structurally rather than cast per-element (spec §4.5).
func (fn *Func) Bind(args []value.Value, kwargs []value.Value) ([]any, error) {
	b, err := bindValues(fn.Spec, args, kwargs)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(fn.Spec.Params)+2)
	for i, p := range fn.Spec.Params {
		if b.filled[i] {
			if i >= len(fn.Casters) || fn.Casters[i] == nil {
				return nil, fmt.Errorf("%s(): no caster registered for parameter %q", fn.Spec.Name, p.Name)
			}
			cast, err := fn.Casters[i](b.slots[i])
			if err != nil {
				return nil, fmt.Errorf("%s(): argument %q: %w", fn.Spec.Name, p.Name, err)
			}
			out = append(out, cast)
			continue
		}
		if !p.HasDefault {
			return nil, fmt.Errorf("%s() missing required argument %q", fn.Spec.Name, p.Name)
		}
		def, err := p.Default()
		if err != nil {
			return nil, fmt.Errorf("%s(): default for %q: %w", fn.Spec.Name, p.Name, err)
		}
		out = append(out, def)
	}
	if fn.Spec.HasVararg {
		out = append(out, b.vararg)
	}
	if fn.Spec.HasKwargs {
		kw := b.kwargs
		if kw == nil {
			kw = map[string]value.Value{}
		}
		out = append(out, kw)
	}
	return out, nil
}

// Invoke runs the full dispatch-and-call: bind, cast, call Host,
// convert the result through Out (spec §4.5 steps 1-6).
func (fn *Func) Invoke(args []value.Value, kwargs []value.Value) (value.Value, error) {
	hostArgs, err := fn.Bind(args, kwargs)
	if err != nil {
		return value.Nil, err
	}
	result, err := fn.Host(hostArgs)
	if err != nil {
		return value.Nil, err
	}
	if fn.Out == nil {
		return OutValue(result)
	}
	return fn.Out(result)
}
