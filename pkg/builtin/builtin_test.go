package builtin

import (
	"bytes"
	"math"
	"testing"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstalledContext(t *testing.T) (*exec.Context, *runtime.VirtualTableRepository, *exec.FunctionStore) {
	t.Helper()
	vtables := runtime.NewVirtualTableRepository()
	functions := exec.NewFunctionStore()
	require.NoError(t, Install(vtables, functions))
	heap := runtime.NewHeap(vtables, 0, zerolog.Nop())
	var out bytes.Buffer
	ctx := exec.NewContext(heap, vtables, functions, &bytes.Buffer{}, &out, &out, zerolog.Nop())
	return ctx, vtables, functions
}

func callVirtual(t *testing.T, ctx *exec.Context, recv value.Value, virtualID string, extraArgs ...value.Value) value.Value {
	t.Helper()
	obj, ok := recv.Obj().(*runtime.Object)
	require.True(t, ok)
	for _, a := range extraArgs {
		ctx.Stack.Push(a)
	}
	result, err := ctx.CallVirtual(obj, virtualID)
	require.NoError(t, err)
	return result
}

func TestInstallRegistersAllReservedClasses(t *testing.T) {
	vtables := runtime.NewVirtualTableRepository()
	functions := exec.NewFunctionStore()
	require.NoError(t, Install(vtables, functions))

	for _, name := range []string{
		"Int", "Float", "Char", "Byte", "Bool", "Nullable", "String", "File",
		"IntArray", "FloatArray", "CharArray", "ByteArray", "BoolArray",
		"ObjectArray", "StringArray", "Pointer", "PointerArray",
	} {
		_, err := vtables.ByName(name)
		assert.NoError(t, err, "expected built-in class %s to be installed", name)
	}
}

// callReal invokes a built-in's real function id directly, the way a
// compiled `Call realID` instruction would for primitive methods that
// operate on unboxed stack values rather than heap objects.
func callReal(t *testing.T, ctx *exec.Context, functions *exec.FunctionStore, realID string, args ...value.Value) value.Value {
	t.Helper()
	fn, err := functions.ByID(realID)
	require.NoError(t, err)
	for _, a := range args {
		ctx.Stack.Push(a)
	}
	outcome, err := fn.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, exec.Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	return result
}

func TestIntToStringAndEquals(t *testing.T) {
	ctx, _, functions := newInstalledContext(t)

	result := callReal(t, ctx, functions, "_Int_ToString_<C>", value.Int(42))
	strObj, ok := result.Obj().(*runtime.Object)
	require.True(t, ok)
	assert.Equal(t, "42", strObj.Str)

	eq := callReal(t, ctx, functions, "_Int_Equals_<C>_IComparable", value.Int(42), value.Int(42))
	assert.True(t, eq.Bool())

	neq := callReal(t, ctx, functions, "_Int_Equals_<C>_IComparable", value.Int(42), value.Int(7))
	assert.False(t, neq.Bool())
}

func TestStringConcatAndLength(t *testing.T) {
	ctx, _, _ := newInstalledContext(t)
	a, err := allocateString(ctx, "foo")
	require.NoError(t, err)
	b, err := allocateString(ctx, "bar")
	require.NoError(t, err)

	ctx.Stack.Push(a)
	ctx.Stack.Push(b)
	outcome, err := stringConcat(ctx)
	require.NoError(t, err)
	assert.Equal(t, exec.Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	obj := result.Obj().(*runtime.Object)
	assert.Equal(t, "foobar", obj.Str)

	lengthResult := callVirtual(t, ctx, result, "_Length_<C>")
	assert.Equal(t, int64(6), lengthResult.Int())
}

func TestArrayAddGetAtAndLength(t *testing.T) {
	ctx, vtables, _ := newInstalledContext(t)
	idx, err := vtables.IndexOf("IntArray")
	require.NoError(t, err)
	obj, err := ctx.Heap.Allocate(uint32(idx))
	require.NoError(t, err)
	arr := value.Object(obj)

	addResult := callVirtual(t, ctx, arr, "Add", value.Int(10))
	assert.True(t, addResult.IsNilObject())
	_ = callVirtual(t, ctx, arr, "Add", value.Int(20))

	length := callVirtual(t, ctx, arr, "Length")
	assert.Equal(t, int64(2), length.Int())

	first := callVirtual(t, ctx, arr, "GetAt", value.Int(0))
	assert.Equal(t, int64(10), first.Int())
}

func TestPointerEqualityIsIdentityBased(t *testing.T) {
	ctx, vtables, _ := newInstalledContext(t)
	idx, err := vtables.IndexOf("Pointer")
	require.NoError(t, err)
	a, err := ctx.Heap.Allocate(uint32(idx))
	require.NoError(t, err)
	b, err := ctx.Heap.Allocate(uint32(idx))
	require.NoError(t, err)

	eqSelf := callVirtual(t, ctx, value.Object(a), "_Equals_<C>_IComparable", value.Object(a))
	assert.True(t, eqSelf.Bool())

	eqOther := callVirtual(t, ctx, value.Object(a), "_Equals_<C>_IComparable", value.Object(b))
	assert.False(t, eqOther.Bool())
}

func TestFloatGetHashIsBitPattern(t *testing.T) {
	ctx, _, functions := newInstalledContext(t)

	hash := callReal(t, ctx, functions, "_Float_GetHash_<C>", value.Float(1.5))
	assert.Equal(t, int64(math.Float64bits(1.5)), hash.Int())
}

func TestSimpleCommandUnknownOpcodeErrors(t *testing.T) {
	_, err := NewSimpleCommand("NotARealOpcode")
	assert.Error(t, err)
}

func TestIntCommandPushIntAndArithmeticOpcodes(t *testing.T) {
	ctx, _, _ := newInstalledContext(t)
	ctx.Frames.Push(value.NewFrame("test", nil))

	push5, err := NewIntCommand("PushInt", 5)
	require.NoError(t, err)
	_, err = push5.Execute(ctx)
	require.NoError(t, err)

	push3, err := NewIntCommand("PushInt", 3)
	require.NoError(t, err)
	_, err = push3.Execute(ctx)
	require.NoError(t, err)

	add, err := NewSimpleCommand("IntAdd")
	require.NoError(t, err)
	_, err = add.Execute(ctx)
	require.NoError(t, err)

	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.Equal(t, int64(8), result.Int())
}
