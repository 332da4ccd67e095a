// Package object implements the heap object kinds of spec §3.2: List,
// Dict, Module, Class, Instance, BoundMethod, Function, Closure,
// Upvalue, Fiber, Future, and the native-binding trio (NativeFunction,
// NativeClass, NativeInstance). Every kind satisfies both
// value.Object (so a Value can hold a handle to it) and gc.GCObject
// (so the collector can size, mark, and sweep it).
package object

import "github.com/kanon/serilang/pkg/gc"

// gcBase is embedded by every heap object kind to satisfy
// gc.GCObject.GCHeader without repeating the boilerplate.
type gcBase struct {
	header gc.Header
}

func (b *gcBase) GCHeader() *gc.Header { return &b.header }
