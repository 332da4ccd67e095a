// Package value implements the tagged Value union of the serilang runtime
// and the heap-object handle contract heap objects must satisfy.
//
// A Value is one of Nil, Bool, Int, Float, Str, or a handle to a heap
// object managed by package gc. Copying a Value never duplicates the
// heap object it may point at — see spec §3.1.
package value

import "fmt"

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// HeapKind tags the concrete heap object kind behind a KindObject Value.
// Defined here (rather than in package object) so Value can name it
// without importing object, which itself must import value.
type HeapKind uint8

const (
	HeapList HeapKind = iota
	HeapDict
	HeapModule
	HeapClass
	HeapInstance
	HeapBoundMethod
	HeapFunction
	HeapClosure
	HeapUpvalue
	HeapFiber
	HeapFuture
	HeapNativeFunction
	HeapNativeClass
	HeapNativeInstance
)

func (k HeapKind) String() string {
	names := [...]string{
		"List", "Dict", "Module", "Class", "Instance", "BoundMethod",
		"Function", "Closure", "Upvalue", "Fiber", "Future",
		"NativeFunction", "NativeClass", "NativeInstance",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "UnknownHeapKind"
}

// Object is the contract every heap object implements so a Value can
// hold a non-owning handle to it. The richer contract required to be
// collectible (mark_roots, GC header, size accounting) lives in
// package gc as GCObject, which embeds Object.
type Object interface {
	HeapKind() HeapKind
	// Desc returns a short human-readable description, used by
	// Value.Desc and in error messages ("<class Foo>", "<fiber Running>").
	Desc() string
}

// Value is the tagged union described in spec §3.1. The zero Value is Nil.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	obj  Object
}

// Nil is the absence value.
var Nil = Value{kind: KindNil}

func Bool(b bool) Value    { return Value{kind: KindBool, b: b} }
func Int(i int64) Value    { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Str(s string) Value   { return Value{kind: KindString, s: s} }

// FromObject wraps a heap object handle in a Value. The handle is
// non-owning: the collector owns the object's lifetime (spec §3.1).
func FromObject(o Object) Value {
	if o == nil {
		return Nil
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsObject() (Object, bool)   { return v.obj, v.kind == KindObject }

// Object unchecked-returns the heap handle, or nil if this Value isn't one.
func (v Value) Object() Object {
	if v.kind == KindObject {
		return v.obj
	}
	return nil
}

// IsNil reports whether v is the Nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsTruthy implements spec §3.1: Nil, false, 0, 0.0, "", and a nil
// object handle are false; everything else is true.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindObject:
		return v.obj != nil
	default:
		return false
	}
}

// Str returns the str() rendering of v — concise, used for string
// concatenation and printing.
func (v Value) Str() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindObject:
		if v.obj == nil {
			return "nil"
		}
		return v.obj.Desc()
	default:
		return "<?>"
	}
}

// Desc returns the desc() rendering of v — a debug-oriented form
// that disambiguates kinds str() collapses (e.g. string literals).
func (v Value) Desc() string {
	if v.kind == KindString {
		return fmt.Sprintf("%q", v.s)
	}
	return v.Str()
}

// TypeName names v's dynamic type for error messages.
func (v Value) TypeName() string {
	if v.kind == KindObject && v.obj != nil {
		return v.obj.HeapKind().String()
	}
	return v.kind.String()
}
