package runtime

import (
	"testing"

	"github.com/kristofer/ovum/pkg/value"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNodeVTable() *VirtualTable {
	vt := NewVirtualTable("Node", 16)
	vt.AddField("next", FieldObject, 8)
	vt.SetScanner(ScannerDefault)
	return vt
}

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	vtables := NewVirtualTableRepository()
	idx, err := vtables.Add(newNodeVTable())
	require.NoError(t, err)

	h := NewHeap(vtables, 0, zerolog.Nop())

	root, err := h.Allocate(uint32(idx))
	require.NoError(t, err)
	garbage, err := h.Allocate(uint32(idx))
	require.NoError(t, err)

	_ = garbage

	n, err := h.Collect([]*Object{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, h.Repository().Contains(root))
	assert.False(t, h.Repository().Contains(garbage))
	assert.False(t, root.Descriptor.Marked())
}

func TestCollectFollowsDefaultScannerReferences(t *testing.T) {
	vtables := NewVirtualTableRepository()
	idx, err := vtables.Add(newNodeVTable())
	require.NoError(t, err)

	h := NewHeap(vtables, 0, zerolog.Nop())

	tail, err := h.Allocate(uint32(idx))
	require.NoError(t, err)
	head, err := h.Allocate(uint32(idx))
	require.NoError(t, err)
	require.NoError(t, head.SetField(0, value.Object(tail)))

	n, err := h.Collect([]*Object{head}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, h.Repository().Contains(head))
	assert.True(t, h.Repository().Contains(tail))
}

func TestCollectFollowsArrayScannerReferences(t *testing.T) {
	vtables := NewVirtualTableRepository()
	arrayVT := NewVirtualTable("ObjectArray", 8)
	arrayVT.SetScanner(ScannerArray)
	arrIdx, err := vtables.Add(arrayVT)
	require.NoError(t, err)
	elemIdx, err := vtables.Add(NewVirtualTable("Int", 8))
	require.NoError(t, err)

	h := NewHeap(vtables, 0, zerolog.Nop())

	elem, err := h.Allocate(uint32(elemIdx))
	require.NoError(t, err)
	arr, err := h.Allocate(uint32(arrIdx))
	require.NoError(t, err)
	arr.Elements = []value.Value{value.Object(elem)}

	n, err := h.Collect([]*Object{arr}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, h.Repository().Contains(elem))
}

func TestCollectInvokesDestructorOnlyForUnreachable(t *testing.T) {
	vtables := NewVirtualTableRepository()
	idx, err := vtables.Add(newNodeVTable())
	require.NoError(t, err)

	h := NewHeap(vtables, 0, zerolog.Nop())

	root, err := h.Allocate(uint32(idx))
	require.NoError(t, err)
	garbage, err := h.Allocate(uint32(idx))
	require.NoError(t, err)

	var destroyed []*Object
	destructor := func(obj *Object, vt *VirtualTable) error {
		destroyed = append(destroyed, obj)
		return nil
	}

	_, err = h.Collect([]*Object{root}, destructor)
	require.NoError(t, err)
	require.Len(t, destroyed, 1)
	assert.Same(t, garbage, destroyed[0])
}

func TestCollectContinuesSweepWhenDestructorFails(t *testing.T) {
	vtables := NewVirtualTableRepository()
	idx, err := vtables.Add(newNodeVTable())
	require.NoError(t, err)

	h := NewHeap(vtables, 0, zerolog.Nop())

	_, err = h.Allocate(uint32(idx))
	require.NoError(t, err)
	_, err = h.Allocate(uint32(idx))
	require.NoError(t, err)

	failingDestructor := func(obj *Object, vt *VirtualTable) error {
		return errors.New("boom")
	}

	n, err := h.Collect(nil, failingDestructor)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, h.Repository().Len())
}
