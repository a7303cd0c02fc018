package bytecode

import (
	"testing"

	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores() (*runtime.VirtualTableRepository, *exec.FunctionStore) {
	return runtime.NewVirtualTableRepository(), exec.NewFunctionStore()
}

func TestParseSimpleFunction(t *testing.T) {
	src := `
function : 2 _Global_Add_Int_Int {
	LoadLocal 0
	LoadLocal 1
	IntAdd
	Return
}
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{})
	initStatic, err := p.Parse()
	require.NoError(t, err)
	assert.Nil(t, initStatic)

	fn, err := functions.ByID("_Global_Add_Int_Int")
	require.NoError(t, err)
	assert.Equal(t, 2, fn.Arity())

	heap := runtime.NewHeap(vtables, 0, zerolog.Nop())
	ctx := exec.NewContext(heap, vtables, functions, nil, nil, nil, zerolog.Nop())
	ctx.Stack.Push(value.Int(3))
	ctx.Stack.Push(value.Int(4))
	outcome, err := fn.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, exec.Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Int())
}

func TestParseNoJitFunctionSkipsWrapper(t *testing.T) {
	src := `
no-jit function : 0 _Global_Zero {
	PushInt 0
	Return
}
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{Threshold: 1})
	_, err := p.Parse()
	require.NoError(t, err)

	fn, err := functions.ByID("_Global_Zero")
	require.NoError(t, err)
	_, ok := fn.(*exec.JitFunction)
	assert.False(t, ok, "no-jit function must not be wrapped in JitFunction")
}

func TestParsePureFunctionWrapsCorrectly(t *testing.T) {
	src := `
pure(Int) no-jit function : 1 _Global_Identity_Int {
	LoadLocal 0
	Return
}
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{})
	_, err := p.Parse()
	require.NoError(t, err)

	fn, err := functions.ByID("_Global_Identity_Int")
	require.NoError(t, err)
	_, ok := fn.(*exec.PureFunction)
	assert.True(t, ok, "pure function must be wrapped in PureFunction")
}

func TestParseVTableDirectives(t *testing.T) {
	src := `
vtable Point {
	size : 24
	interfaces { IComparable, IHashable }
	vartable { x : Int @ 8, y : Int @ 16 }
	methods { _Equals_<C>_IComparable : _Point_Equals_<C>_IComparable }
}
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{})
	_, err := p.Parse()
	require.NoError(t, err)

	vt, err := vtables.ByName("Point")
	require.NoError(t, err)
	assert.Equal(t, int64(24), vt.Size())
	assert.True(t, vt.IsType("IComparable"))
	assert.True(t, vt.IsType("IHashable"))
	assert.Len(t, vt.Fields(), 2)
	real, err := vt.RealFunctionID("_Equals_<C>_IComparable")
	require.NoError(t, err)
	assert.Equal(t, "_Point_Equals_<C>_IComparable", real)
}

func TestParseIfThenElse(t *testing.T) {
	src := `
function : 1 _Global_IsPositive_Int {
	LoadLocal 0
	PushInt 0
	IntGreaterThan
	if {
		LoadLocal 0
		PushInt 0
		IntGreaterThan
	} then {
		PushBool true
		Return
	} else {
		PushBool false
		Return
	}
}
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{})
	_, err := p.Parse()
	require.NoError(t, err)

	fn, err := functions.ByID("_Global_IsPositive_Int")
	require.NoError(t, err)

	heap := runtime.NewHeap(vtables, 0, zerolog.Nop())
	ctx := exec.NewContext(heap, vtables, functions, nil, nil, nil, zerolog.Nop())
	ctx.Stack.Push(value.Int(5))
	outcome, err := fn.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, exec.Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.True(t, result.Bool())
}

func TestParseNegativeIntLiteralIsUnsupported(t *testing.T) {
	// The bytecode grammar's punctuation set has no minus sign (spec
	// §4.6); negative literals are not representable as IDENT/INT
	// tokens, so PushInt -1 fails to parse.
	src := `
function : 0 _Global_NegativeOne {
	PushInt -1
	Return
}
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{})
	_, err := p.Parse()
	assert.Error(t, err)
}

func TestParseWhileLoop(t *testing.T) {
	src := `
function : 0 _Global_CountToFive {
	PushInt 0
	SetLocal 0
	while {
		LoadLocal 0
		PushInt 5
		IntLessThan
	} then {
		LoadLocal 0
		PushInt 1
		IntAdd
		SetLocal 0
	}
	LoadLocal 0
	Return
}
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{})
	_, err := p.Parse()
	require.NoError(t, err)

	fn, err := functions.ByID("_Global_CountToFive")
	require.NoError(t, err)

	heap := runtime.NewHeap(vtables, 0, zerolog.Nop())
	ctx := exec.NewContext(heap, vtables, functions, nil, nil, nil, zerolog.Nop())
	outcome, err := fn.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, exec.Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Int())
}

func TestParseDuplicateInitStaticErrors(t *testing.T) {
	src := `
init-static { PushInt 1 }
init-static { PushInt 2 }
`
	vtables, functions := newStores()
	p := NewParser(src, vtables, functions, JITOptions{})
	_, err := p.Parse()
	assert.Error(t, err)
}

func TestParseUnknownTopLevelErrors(t *testing.T) {
	vtables, functions := newStores()
	p := NewParser("bogus", vtables, functions, JITOptions{})
	_, err := p.Parse()
	assert.Error(t, err)
}
