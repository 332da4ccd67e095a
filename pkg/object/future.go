package object

import (
	"fmt"
	"unsafe"

	"github.com/google/uuid"

	"github.com/kanon/serilang/pkg/value"
)

// PromiseStatus is the Pending/Resolved/Rejected state of spec §3.3.
type PromiseStatus uint8

const (
	PromisePending PromiseStatus = iota
	PromiseResolved
	PromiseRejected
)

func (s PromiseStatus) String() string {
	switch s {
	case PromisePending:
		return "pending"
	case PromiseResolved:
		return "resolved"
	case PromiseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Waker is a callback registered on a Promise, invoked exactly once
// when the promise settles (spec §3.3, glossary).
type Waker func(p *Promise)

// Promise is the native-code half of an awaitable result; Future is
// the script-visible half that wraps it (spec §3.3, glossary).
//
// Promise is not itself a GC heap object — it is always owned by
// exactly one Future, which is. This mirrors original_source's
// future.cpp, where the promise state lives inline in the Future and
// is never independently reachable.
type Promise struct {
	ID       uuid.UUID
	Status   PromiseStatus
	Result   value.Value
	ErrMsg   string
	wakers   []Waker
	roots    []value.Value
	settling bool // re-entrancy guard (SPEC_FULL §4: guards a waker resolving its own promise)
}

func NewPromise() *Promise {
	return &Promise{ID: uuid.New()}
}

// AddRoot registers v to be kept alive by the GC while the promise is
// pending (spec §3.3).
func (p *Promise) AddRoot(v value.Value) { p.roots = append(p.roots, v) }

// AddWaker registers a callback to run on terminal transition. If the
// promise has already settled, w runs immediately.
func (p *Promise) AddWaker(w Waker) {
	if p.Status != PromisePending {
		w(p)
		return
	}
	p.wakers = append(p.wakers, w)
}

// Resolve transitions Pending->Resolved exactly once; further calls
// are no-ops (spec §3.3's monotonic-transition invariant).
func (p *Promise) Resolve(v value.Value) {
	if p.Status != PromisePending || p.settling {
		return
	}
	p.settling = true
	defer func() { p.settling = false }()
	p.Status = PromiseResolved
	p.Result = v
	p.drainWakers()
}

// Reject transitions Pending->Rejected exactly once.
func (p *Promise) Reject(msg string) {
	if p.Status != PromisePending || p.settling {
		return
	}
	p.settling = true
	defer func() { p.settling = false }()
	p.Status = PromiseRejected
	p.ErrMsg = msg
	p.drainWakers()
}

func (p *Promise) drainWakers() {
	wakers := p.wakers
	p.wakers = nil
	p.roots = nil
	for _, w := range wakers {
		w(p)
	}
}

func (p *Promise) IsPending() bool { return p.Status == PromisePending }

// Future is the awaitable heap object wrapping a Promise (spec §3.2).
type Future struct {
	gcBase
	Promise *Promise
}

func NewFuture(p *Promise) *Future { return &Future{Promise: p} }

func (f *Future) HeapKind() value.HeapKind { return value.HeapFuture }
func (f *Future) Desc() string {
	return fmt.Sprintf("<future %s>", f.Promise.Status)
}
func (f *Future) MarkRoots(mark func(value.Value)) {
	if f.Promise.Status == PromisePending {
		for _, r := range f.Promise.roots {
			mark(r)
		}
	} else {
		mark(f.Promise.Result)
	}
}
func (f *Future) Size() uintptr { return unsafe.Sizeof(*f) }
