package object

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/kanon/serilang/pkg/value"
)

// Dict is the String-keyed mapping heap kind (spec §3.2). Insertion
// order is not guaranteed, per spec; Keys snapshotting is provided
// for iteration but callers must not assume stability across writes.
type Dict struct {
	gcBase
	entries map[string]value.Value
}

func NewDict() *Dict { return &Dict{entries: make(map[string]value.Value)} }

func (d *Dict) HeapKind() value.HeapKind { return value.HeapDict }

func (d *Dict) Desc() string {
	parts := make([]string, 0, len(d.entries))
	for k, v := range d.entries {
		parts = append(parts, fmt.Sprintf("%q: %s", k, v.Desc()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d *Dict) MarkRoots(mark func(value.Value)) {
	for _, v := range d.entries {
		mark(v)
	}
}

func (d *Dict) Size() uintptr {
	return unsafe.Sizeof(*d) + uintptr(len(d.entries))*(unsafe.Sizeof(value.Value{})+16)
}

func (d *Dict) Len() int { return len(d.entries) }

func (d *Dict) Get(key string) (value.Value, bool) {
	v, ok := d.entries[key]
	return v, ok
}

func (d *Dict) Set(key string, v value.Value) { d.entries[key] = v }

func (d *Dict) Delete(key string) { delete(d.entries, key) }

// Keys returns a snapshot of the current keys.
func (d *Dict) Keys() []string {
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	return keys
}
