package gc

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/value"
)

// fakeObject is a minimal GCObject for exercising the collector
// without pulling in package object (which itself depends on gc).
type fakeObject struct {
	header    Header
	refs      []value.Value
	finalized *int
}

func (f *fakeObject) HeapKind() value.HeapKind        { return value.HeapList }
func (f *fakeObject) Desc() string                    { return "<fake>" }
func (f *fakeObject) Size() uintptr                   { return 8 }
func (f *fakeObject) GCHeader() *Header               { return &f.header }
func (f *fakeObject) MarkRoots(mark func(value.Value)) {
	for _, v := range f.refs {
		mark(v)
	}
}
func (f *fakeObject) Finalize() {
	if f.finalized != nil {
		*f.finalized++
	}
}

func TestAllocTracksBytes(t *testing.T) {
	c := New(zerolog.Nop())
	obj := Alloc(c, &fakeObject{})
	require.NotNil(t, obj)
	require.Equal(t, uintptr(8), c.Bytes())
}

func TestCollectSweepsUnreachableAndRunsFinalizer(t *testing.T) {
	c := New(zerolog.Nop())
	var finalizedCount int
	garbage := Alloc(c, &fakeObject{finalized: &finalizedCount})
	_ = garbage

	freed, finalized := c.Collect(func(mark func(value.Value)) {})
	require.Equal(t, uintptr(8), freed)
	require.Equal(t, 1, finalized)
	require.Equal(t, 1, finalizedCount)
	require.Equal(t, uintptr(0), c.Bytes())
}

func TestCollectKeepsReachableObjects(t *testing.T) {
	c := New(zerolog.Nop())
	var finalizedCount int
	kept := Alloc(c, &fakeObject{finalized: &finalizedCount})

	freed, finalized := c.Collect(func(mark func(value.Value)) {
		mark(value.FromObject(kept))
	})
	require.Equal(t, uintptr(0), freed)
	require.Equal(t, 0, finalized)
	require.Equal(t, 0, finalizedCount)
	require.Equal(t, uintptr(8), c.Bytes())
}

func TestCollectHandlesCycles(t *testing.T) {
	c := New(zerolog.Nop())
	a := Alloc(c, &fakeObject{})
	b := Alloc(c, &fakeObject{})
	a.refs = append(a.refs, value.FromObject(b))
	b.refs = append(b.refs, value.FromObject(a))

	// Both reachable from a root: survive.
	freed, _ := c.Collect(func(mark func(value.Value)) {
		mark(value.FromObject(a))
	})
	require.Equal(t, uintptr(0), freed)

	// Drop all roots: the cycle must still be collected (no leak).
	freed, finalized := c.Collect(func(mark func(value.Value)) {})
	require.Equal(t, uintptr(16), freed)
	require.Equal(t, 2, finalized)
}

func TestProtectKeepsTemporariesAliveAcrossCollect(t *testing.T) {
	c := New(zerolog.Nop())
	var finalizedCount int
	temp := Alloc(c, &fakeObject{finalized: &finalizedCount})

	n := c.Protect(value.FromObject(temp))
	freed, finalized := c.Collect(func(mark func(value.Value)) {})
	require.Equal(t, uintptr(0), freed)
	require.Equal(t, 0, finalized)
	c.Release(n)

	freed, finalized = c.Collect(func(mark func(value.Value)) {})
	require.Equal(t, uintptr(8), freed)
	require.Equal(t, 1, finalized)
}

func TestDisableSuppressesShouldCollect(t *testing.T) {
	c := New(zerolog.Nop())
	c.SetThreshold(1)
	Alloc(c, &fakeObject{})
	require.True(t, c.ShouldCollect())

	c.Disable()
	require.False(t, c.ShouldCollect())
	c.Enable()
	require.True(t, c.ShouldCollect())
}

func TestThresholdDoublesAfterCollect(t *testing.T) {
	c := New(zerolog.Nop())
	c.SetThreshold(100)
	c.Collect(func(mark func(value.Value)) {})
	require.Equal(t, uintptr(200), c.Threshold())
}
