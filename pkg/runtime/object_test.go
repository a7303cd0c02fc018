package runtime

import (
	"testing"

	"github.com/kristofer/ovum/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectFieldsSizedToVTable(t *testing.T) {
	vt := NewVirtualTable("Point", 24)
	vt.AddField("x", FieldInt, 8)
	vt.AddField("y", FieldInt, 16)

	obj := NewObject(3, vt)
	assert.EqualValues(t, 3, obj.Descriptor.VTableIndex)
	assert.Len(t, obj.Fields, 2)
	assert.False(t, obj.Descriptor.Marked())
}

func TestObjectGetSetField(t *testing.T) {
	vt := NewVirtualTable("Point", 24)
	vt.AddField("x", FieldInt, 8)
	vt.AddField("y", FieldInt, 16)
	obj := NewObject(0, vt)

	require.NoError(t, obj.SetField(0, value.Int(10)))
	require.NoError(t, obj.SetField(1, value.Int(20)))

	x, err := obj.GetField(0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, x.Int())

	y, err := obj.GetField(1)
	require.NoError(t, err)
	assert.EqualValues(t, 20, y.Int())
}

func TestObjectFieldOutOfRange(t *testing.T) {
	vt := NewVirtualTable("Empty", 8)
	obj := NewObject(0, vt)

	_, err := obj.GetField(0)
	assert.Error(t, err)

	err = obj.SetField(0, value.Int(1))
	assert.Error(t, err)
}

func TestObjectDescriptorMarkRoundTrip(t *testing.T) {
	vt := NewVirtualTable("Int", 8)
	obj := NewObject(0, vt)

	obj.Descriptor.SetMarked(true)
	assert.True(t, obj.Descriptor.Marked())

	obj.Descriptor.SetMarked(false)
	assert.False(t, obj.Descriptor.Marked())
}
