package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualTableFieldsAndSize(t *testing.T) {
	vt := NewVirtualTable("Point", 24)
	vt.AddField("x", FieldInt, 8)
	vt.AddField("y", FieldInt, 16)

	assert.Equal(t, "Point", vt.Name())
	assert.EqualValues(t, 24, vt.Size())
	require.Len(t, vt.Fields(), 2)

	f, err := vt.Field(1)
	require.NoError(t, err)
	assert.Equal(t, "y", f.Name)
	assert.Equal(t, FieldInt, f.Type)

	_, err = vt.Field(2)
	assert.Error(t, err)
}

func TestVirtualTableDuplicateFieldsAccepted(t *testing.T) {
	vt := NewVirtualTable("Dup", 16)
	vt.AddField("a", FieldInt, 8)
	vt.AddField("a", FieldInt, 8)
	assert.Len(t, vt.Fields(), 2)
}

func TestVirtualTableSetSize(t *testing.T) {
	vt := NewVirtualTable("Box", 8)
	vt.SetSize(32)
	assert.EqualValues(t, 32, vt.Size())
}

func TestVirtualTableIsType(t *testing.T) {
	vt := NewVirtualTable("String", 8)
	vt.AddInterface("IComparable")
	vt.AddInterface("IHashable")

	assert.True(t, vt.IsType("String"))
	assert.True(t, vt.IsType("IComparable"))
	assert.True(t, vt.IsType("IHashable"))
	assert.False(t, vt.IsType("IStringConvertible"))
}

func TestVirtualTableMethodResolution(t *testing.T) {
	vt := NewVirtualTable("Int", 8)
	vt.AddMethod("_Int_Equals_<C>_IComparable", "_Int_Equals_<C>_IComparable")

	real, err := vt.RealFunctionID("_Int_Equals_<C>_IComparable")
	require.NoError(t, err)
	assert.Equal(t, "_Int_Equals_<C>_IComparable", real)

	_, err = vt.RealFunctionID("_Int_Missing")
	assert.Error(t, err)
}

func TestVirtualTableScannerDefaultsToEmpty(t *testing.T) {
	vt := NewVirtualTable("Int", 8)
	assert.Equal(t, ScannerEmpty, vt.Scanner())

	vt.SetScanner(ScannerDefault)
	assert.Equal(t, ScannerDefault, vt.Scanner())
}
