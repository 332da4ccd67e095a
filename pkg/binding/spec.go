// Package binding implements the native-binding layer of spec §4.5: an
// ArgSpec per bound callable, type casters between Values and Go types,
// the five-step dispatch algorithm, and thin registrar helpers that
// wire bound functions into object.Module/object.NativeClass.
package binding

import "fmt"

// Param describes one parameter slot in an ArgSpec.
type Param struct {
	Name         string
	PositionalOnly bool
	HasDefault   bool
	Default      func() (any, error)
}

// Spec is the argument-list specification of spec §4.5: positional and
// keyword-or-positional parameters (positional-only ones form a
// prefix), an optional trailing vararg carrier, and an optional
// trailing kwarg carrier. Build one with NewSpec.
type Spec struct {
	Name       string
	Params     []Param
	index      map[string]int
	HasVararg  bool
	VarargName string
	HasKwargs  bool
	KwargsName string
}

// NewSpec starts building the ArgSpec for a callable named name (used
// only in error messages).
func NewSpec(name string) *Spec {
	return &Spec{Name: name, index: make(map[string]int)}
}

// Positional appends a positional-only parameter. Positional-only
// parameters must precede every positional-or-keyword one (spec §4.5).
func (s *Spec) Positional(name string) *Spec {
	return s.addParam(Param{Name: name, PositionalOnly: true})
}

// Param appends a positional-or-keyword parameter.
func (s *Spec) Param(name string) *Spec {
	return s.addParam(Param{Name: name})
}

// Default gives the most recently added parameter a default-value
// provider, called lazily when the caller leaves it unbound.
func (s *Spec) Default(provider func() (any, error)) *Spec {
	if n := len(s.Params); n > 0 {
		s.Params[n-1].HasDefault = true
		s.Params[n-1].Default = provider
	}
	return s
}

// Vararg marks the spec as accepting a trailing vararg carrier under
// name (receives every positional beyond the declared parameters).
func (s *Spec) Vararg(name string) *Spec {
	s.HasVararg = true
	s.VarargName = name
	return s
}

// Kwargs marks the spec as accepting a trailing kwarg carrier under
// name (receives every keyword argument not matching a declared name).
func (s *Spec) Kwargs(name string) *Spec {
	s.HasKwargs = true
	s.KwargsName = name
	return s
}

func (s *Spec) addParam(p Param) *Spec {
	s.index[p.Name] = len(s.Params)
	s.Params = append(s.Params, p)
	return s
}

// NumPositionalOnly reports how many of Params are positional-only.
func (s *Spec) NumPositionalOnly() int {
	n := 0
	for _, p := range s.Params {
		if !p.PositionalOnly {
			break
		}
		n++
	}
	return n
}

// Build validates the registration-time rules of spec §4.5 and
// returns s for chaining, or an error describing the first violation.
func (s *Spec) Build() (*Spec, error) {
	seenKeywordOnly := false
	for _, p := range s.Params {
		if !p.PositionalOnly {
			seenKeywordOnly = true
		} else if seenKeywordOnly {
			return nil, fmt.Errorf("binding %s: positional-only parameter %q follows a positional-or-keyword one", s.Name, p.Name)
		}
	}
	seen := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if seen[p.Name] {
			return nil, fmt.Errorf("binding %s: duplicate parameter name %q", s.Name, p.Name)
		}
		seen[p.Name] = true
	}
	if s.HasVararg && s.HasKwargs && s.VarargName == s.KwargsName {
		return nil, fmt.Errorf("binding %s: vararg and kwarg carriers must have distinct names", s.Name)
	}
	return s, nil
}

func (s *Spec) paramIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}
