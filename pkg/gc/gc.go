// Package gc implements the mark-and-sweep collector of spec §4.3.
//
// Every heap object is a node in a singly-linked intrusive list rooted
// at the Collector, following the design note in spec §9 ("Intrusive
// GC list"): the {next, marked, size} header is a value every heap
// object in package object embeds, keeping allocation and sweep free
// of reflection or per-object metadata lookups.
package gc

import (
	"github.com/rs/zerolog"

	"github.com/kanon/serilang/pkg/value"
)

// Header is the GC bookkeeping every heap object carries (spec §3.2:
// "Every heap object carries a GC header {next pointer, mark bit, byte size}").
type Header struct {
	next   *Header
	marked bool
	size   uintptr
	owner  GCObject
}

// GCObject is the contract a heap object must satisfy to be
// collector-managed: it must report its size and mark every Value it
// holds reachable from it (spec §3.2: mark_roots).
type GCObject interface {
	value.Object
	// MarkRoots visits every Value directly held by the object.
	MarkRoots(mark func(value.Value))
	// Size reports the object's byte footprint for accounting.
	Size() uintptr
	// GCHeader returns the embedded Header, set once at allocation.
	GCHeader() *Header
}

// Finalizer is implemented by heap objects (Native Instances) that
// must run cleanup exactly once during sweep (spec §3.4, §4.5).
type Finalizer interface {
	Finalize()
}

// Collector owns the intrusive heap list and drives mark-and-sweep.
type Collector struct {
	head      *Header
	bytes     uintptr
	threshold uintptr
	log       zerolog.Logger
	disabled  bool

	// temps roots Values an interpreter has popped off a fiber's stack
	// but not yet re-attached anywhere (e.g. elements being gathered
	// into a new List) — see Protect.
	temps []value.Value
}

// Protect appends vs to the temporary-root list and returns how many
// it added, for a matching Release. A caller that pops Values off a
// fiber's stack to build a new container must Protect them before any
// further Alloc call, since nothing else marks a bare Go slice during
// a collection (spec §4.3: roots are the VM's globals/builtins/fibers,
// not arbitrary interpreter-local variables).
func (c *Collector) Protect(vs ...value.Value) int {
	c.temps = append(c.temps, vs...)
	return len(vs)
}

// Release drops the last n Values pushed by Protect.
func (c *Collector) Release(n int) {
	if n > len(c.temps) {
		n = len(c.temps)
	}
	c.temps = c.temps[:len(c.temps)-n]
}

// DefaultInitialThreshold is the byte count after which the first
// collection becomes eligible.
const DefaultInitialThreshold = 1 << 20 // 1 MiB

// New constructs a Collector. A zero logger silently discards events.
func New(log zerolog.Logger) *Collector {
	return &Collector{threshold: DefaultInitialThreshold, log: log}
}

// Disable suppresses implicit collection (ShouldCollect reports false
// until Enable is called); used while constructing a VM and registering builtins
// (spec §4.3: "clients disable collection during construction").
func (c *Collector) Disable()  { c.disabled = true }
func (c *Collector) Enable()   { c.disabled = false }

// Bytes reports currently-allocated bytes.
func (c *Collector) Bytes() uintptr { return c.bytes }

// Threshold reports the current collection threshold.
func (c *Collector) Threshold() uintptr { return c.threshold }

// SetThreshold overrides the initial collection threshold, letting an
// embedder tune how aggressively the first cycle triggers (spec §9's
// growth policy still doubles it from here on).
func (c *Collector) SetThreshold(n uintptr) { c.threshold = n }

// Alloc registers obj in the intrusive list, attributes its bytes,
// and returns it unchanged — the allocation routine of spec §3.4
// ("Every heap object is created only via the collector's allocation
// routine"). T is inferred at the call site, e.g. gc.Alloc(c, &object.List{...}).
func Alloc[T GCObject](c *Collector, obj T) T {
	h := obj.GCHeader()
	h.owner = obj
	h.size = obj.Size()
	h.next = c.head
	c.head = h
	c.bytes += h.size
	return obj
}

// ShouldCollect reports whether allocated bytes have crossed the
// threshold, per spec §4.3 ("triggered after an allocation when
// allocated bytes >= threshold").
func (c *Collector) ShouldCollect() bool {
	return !c.disabled && c.bytes >= c.threshold
}

// Collect runs one mark-and-sweep cycle. markRoots is invoked once
// and must call mark(v) for every root Value (VM.last, live fibers,
// globals, builtins, pending-promise roots — spec §4.3).
func (c *Collector) Collect(markRoots func(mark func(value.Value))) (freedBytes uintptr, finalized int) {
	// 1. Clear all marks.
	for h := c.head; h != nil; h = h.next {
		h.marked = false
	}

	// 2. Visit roots; the visitor marks the target and recursively
	// marks its reachable values. Already-marked objects short-circuit,
	// which is what makes cyclic structures terminate (spec §4.3).
	var mark func(value.Value)
	mark = func(v value.Value) {
		obj, ok := v.AsObject()
		if !ok || obj == nil {
			return
		}
		gobj, ok := obj.(GCObject)
		if !ok {
			return
		}
		h := gobj.GCHeader()
		if h.marked {
			return
		}
		h.marked = true
		gobj.MarkRoots(mark)
	}
	markRoots(mark)
	for _, v := range c.temps {
		mark(v)
	}

	// 3. Sweep: unlink and finalize unmarked nodes; clear marks on survivors.
	var prev *Header
	node := c.head
	for node != nil {
		next := node.next
		if !node.marked {
			if fin, ok := node.owner.(Finalizer); ok {
				fin.Finalize()
				finalized++
			}
			c.bytes -= node.size
			freedBytes += node.size
			if prev == nil {
				c.head = next
			} else {
				prev.next = next
			}
		} else {
			node.marked = false
			prev = node
		}
		node = next
	}

	// Growth policy: double the threshold after each collection (spec §4.3).
	c.threshold *= 2
	c.log.Debug().Uint64("freed_bytes", uint64(freedBytes)).Int("finalized", finalized).
		Uint64("live_bytes", uint64(c.bytes)).Uint64("next_threshold", uint64(c.threshold)).
		Msg("gc: cycle complete")
	return freedBytes, finalized
}
