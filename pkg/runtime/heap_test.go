package runtime

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeap(t *testing.T, threshold int) (*Heap, *VirtualTableRepository, int) {
	t.Helper()
	vtables := NewVirtualTableRepository()
	idx, err := vtables.Add(NewVirtualTable("Int", 8))
	require.NoError(t, err)
	return NewHeap(vtables, threshold, zerolog.Nop()), vtables, idx
}

func TestHeapAllocateRegistersObject(t *testing.T) {
	h, _, idx := newTestHeap(t, 0)

	obj, err := h.Allocate(uint32(idx))
	require.NoError(t, err)
	assert.True(t, h.Repository().Contains(obj))
	assert.Equal(t, 1, h.Repository().Len())
}

func TestHeapAllocateUnknownVTable(t *testing.T) {
	h, _, _ := newTestHeap(t, 0)
	_, err := h.Allocate(99)
	assert.Error(t, err)
}

func TestHeapDestroyRemovesObjectWithoutDestructor(t *testing.T) {
	h, _, idx := newTestHeap(t, 0)
	obj, err := h.Allocate(uint32(idx))
	require.NoError(t, err)

	h.Destroy(obj)
	assert.False(t, h.Repository().Contains(obj))
}

func TestHeapShouldCollectRespectsThreshold(t *testing.T) {
	h, _, idx := newTestHeap(t, 1)
	assert.False(t, h.ShouldCollect())

	_, err := h.Allocate(uint32(idx))
	require.NoError(t, err)
	assert.False(t, h.ShouldCollect())

	_, err = h.Allocate(uint32(idx))
	require.NoError(t, err)
	assert.True(t, h.ShouldCollect())
}

func TestHeapShouldCollectDisabledByNonPositiveThreshold(t *testing.T) {
	h, _, idx := newTestHeap(t, 0)
	for i := 0; i < 10; i++ {
		_, err := h.Allocate(uint32(idx))
		require.NoError(t, err)
	}
	assert.False(t, h.ShouldCollect())
}

func TestHeapVTableOf(t *testing.T) {
	h, _, idx := newTestHeap(t, 0)
	obj, err := h.Allocate(uint32(idx))
	require.NoError(t, err)

	vt, err := h.VTableOf(obj)
	require.NoError(t, err)
	assert.Equal(t, "Int", vt.Name())
}
