package exec

import (
	"bytes"
	"testing"

	"github.com/kristofer/ovum/pkg/jit"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	vtables := runtime.NewVirtualTableRepository()
	heap := runtime.NewHeap(vtables, 0, zerolog.Nop())
	functions := NewFunctionStore()
	var out bytes.Buffer
	ctx := NewContext(heap, vtables, functions, &bytes.Buffer{}, &out, &out, zerolog.Nop())
	return ctx
}

func pushInt(ctx *Context, i int64) { ctx.Stack.Push(value.Int(i)) }

func TestBlockStopsOnNonNormal(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Frames.Push(value.NewFrame("main", nil))

	ran := false
	block := NewBlock(
		NewCommand("break", func(ctx *Context) (Outcome, error) { return Break, nil }),
		NewCommand("unreached", func(ctx *Context) (Outcome, error) { ran = true; return Normal, nil }),
	)

	outcome, err := block.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Break, outcome)
	assert.False(t, ran)
}

func TestConditionalExecutionTrueAndFalse(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Frames.Push(value.NewFrame("main", nil))

	bodyRan := false
	cond := NewConditionalExecution(
		NewCommand("pushTrue", func(ctx *Context) (Outcome, error) { ctx.Stack.Push(value.Bool(true)); return Normal, nil }),
		NewCommand("body", func(ctx *Context) (Outcome, error) { bodyRan = true; return Normal, nil }),
	)
	outcome, err := cond.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	assert.True(t, bodyRan)

	cond2 := NewConditionalExecution(
		NewCommand("pushFalse", func(ctx *Context) (Outcome, error) { ctx.Stack.Push(value.Bool(false)); return Normal, nil }),
		NewCommand("body", func(ctx *Context) (Outcome, error) { t.Fatal("should not run"); return Normal, nil }),
	)
	outcome, err = cond2.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, ConditionFalse, outcome)
}

func TestIfMultibranchFallsThroughToElse(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Frames.Push(value.NewFrame("main", nil))

	falseCond := NewConditionalExecution(
		NewCommand("pushFalse", func(ctx *Context) (Outcome, error) { ctx.Stack.Push(value.Bool(false)); return Normal, nil }),
		NewCommand("unreached", func(ctx *Context) (Outcome, error) { t.Fatal("should not run"); return Normal, nil }),
	)
	elseRan := false
	elseBlock := NewCommand("else", func(ctx *Context) (Outcome, error) { elseRan = true; return Normal, nil })

	multi := NewIfMultibranch([]*ConditionalExecution{falseCond}, elseBlock)
	outcome, err := multi.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	assert.True(t, elseRan)
}

func TestWhileExecutionSum(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Frames.Push(value.NewFrame("main", nil))
	frame, _ := ctx.Frames.Top()
	require.NoError(t, frame.SetLocal(0, value.Int(1))) // counter
	require.NoError(t, frame.SetLocal(1, value.Int(0))) // sum

	condition := NewCommand("cond", func(ctx *Context) (Outcome, error) {
		frame, _ := ctx.Frames.Top()
		counter, _ := frame.Local(0)
		ctx.Stack.Push(value.Bool(counter.Int() <= 10))
		return Normal, nil
	})
	body := NewCommand("body", func(ctx *Context) (Outcome, error) {
		frame, _ := ctx.Frames.Top()
		counter, _ := frame.Local(0)
		sum, _ := frame.Local(1)
		_ = frame.SetLocal(1, value.Int(sum.Int()+counter.Int()))
		_ = frame.SetLocal(0, value.Int(counter.Int()+1))
		return Normal, nil
	})

	loop := NewWhileExecution(condition, body)
	outcome, err := loop.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)

	sum, _ := frame.Local(1)
	assert.EqualValues(t, 55, sum.Int())
}

func TestWhileExecutionBreakAndContinue(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Frames.Push(value.NewFrame("main", nil))
	frame, _ := ctx.Frames.Top()
	require.NoError(t, frame.SetLocal(0, value.Int(0)))

	iterations := 0
	condition := NewCommand("cond", func(ctx *Context) (Outcome, error) {
		ctx.Stack.Push(value.Bool(true))
		return Normal, nil
	})
	body := NewCommand("body", func(ctx *Context) (Outcome, error) {
		frame, _ := ctx.Frames.Top()
		counter, _ := frame.Local(0)
		iterations++
		if counter.Int() >= 2 {
			return Break, nil
		}
		_ = frame.SetLocal(0, value.Int(counter.Int()+1))
		return Continue, nil
	})

	loop := NewWhileExecution(condition, body)
	outcome, err := loop.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	assert.Equal(t, 3, iterations)
}

func newAddFunction() *Function {
	body := NewCommand("add", func(ctx *Context) (Outcome, error) {
		frame, _ := ctx.Frames.Top()
		a, _ := frame.Local(0)
		b, _ := frame.Local(1)
		ctx.Stack.Push(value.Int(a.Int() + b.Int()))
		return Normal, nil
	})
	return NewFunction("add", 2, body)
}

func TestFunctionExecuteResultAndFrameCleanup(t *testing.T) {
	ctx := newTestContext(t)
	fn := newAddFunction()

	pushInt(ctx, 3)
	pushInt(ctx, 4)
	outcome, err := fn.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	assert.Equal(t, 0, ctx.Frames.Depth())

	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.EqualValues(t, 7, result.Int())
	assert.EqualValues(t, 1, fn.ExecutionCount())
	assert.EqualValues(t, 1, fn.TotalActionCount())
}

func TestFunctionInsufficientArguments(t *testing.T) {
	ctx := newTestContext(t)
	fn := newAddFunction()
	pushInt(ctx, 1)
	_, err := fn.Execute(ctx)
	assert.Error(t, err)
}

func newSquareFunction() *Function {
	body := NewCommand("square", func(ctx *Context) (Outcome, error) {
		frame, _ := ctx.Frames.Top()
		n, _ := frame.Local(0)
		ctx.Stack.Push(value.Int(n.Int() * n.Int()))
		return Normal, nil
	})
	return NewFunction("square", 1, body)
}

func TestPureFunctionCachesByFingerprint(t *testing.T) {
	ctx := newTestContext(t)
	inner := newSquareFunction()
	pure := NewPureFunction(inner, []string{"int"})

	pushInt(ctx, 4)
	outcome, err := pure.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.EqualValues(t, 16, result.Int())
	assert.EqualValues(t, 1, inner.TotalActionCount())

	pushInt(ctx, 4)
	outcome, err = pure.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	result, err = ctx.Stack.Pop()
	require.NoError(t, err)
	assert.EqualValues(t, 16, result.Int())
	// Second call hit the cache: the inner body did not run again.
	assert.EqualValues(t, 1, inner.TotalActionCount())
	assert.EqualValues(t, 1, inner.ExecutionCount())
}

func TestPureFunctionTypeMismatch(t *testing.T) {
	ctx := newTestContext(t)
	inner := newSquareFunction()
	pure := NewPureFunction(inner, []string{"int"})

	ctx.Stack.Push(value.Float(1.5))
	_, err := pure.Execute(ctx)
	assert.Error(t, err)
}

func TestJitFunctionPassThroughBelowThreshold(t *testing.T) {
	ctx := newTestContext(t)
	inner := newSquareFunction()
	jitFn := NewJitFunction(inner, jit.Stub{}, 1000)

	pushInt(ctx, 3)
	outcome, err := jitFn.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.EqualValues(t, 9, result.Int())
}

func TestJitFunctionStubNeverCompilesAboveThreshold(t *testing.T) {
	ctx := newTestContext(t)
	inner := newSquareFunction()
	jitFn := NewJitFunction(inner, jit.Stub{}, 0)

	pushInt(ctx, 3)
	_, err := jitFn.Execute(ctx)
	require.NoError(t, err)
	_, _ = ctx.Stack.Pop()

	// inner.TotalActionCount() is now 1 > threshold 0, so the next call
	// asks the stub to compile; it always declines and falls back.
	pushInt(ctx, 5)
	outcome, err := jitFn.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, Normal, outcome)
	result, err := ctx.Stack.Pop()
	require.NoError(t, err)
	assert.EqualValues(t, 25, result.Int())
}

func TestFunctionStoreDuplicateRejected(t *testing.T) {
	store := NewFunctionStore()
	fn := newAddFunction()
	_, err := store.Add(fn)
	require.NoError(t, err)

	_, err = store.Add(newAddFunction())
	assert.Error(t, err)
}

func TestFunctionStoreLookup(t *testing.T) {
	store := NewFunctionStore()
	fn := newAddFunction()
	idx, err := store.Add(fn)
	require.NoError(t, err)

	byIdx, err := store.ByIndex(idx)
	require.NoError(t, err)
	assert.Equal(t, "add", byIdx.ID())

	byID, err := store.ByID("add")
	require.NoError(t, err)
	assert.Equal(t, "add", byID.ID())

	assert.True(t, store.Has("add"))
	assert.False(t, store.Has("missing"))
}

func TestContextMaybeCollectSweepsUnreachable(t *testing.T) {
	ctx := newTestContext(t)
	idx, err := ctx.VTables.Add(runtime.NewVirtualTable("Int", 8))
	require.NoError(t, err)
	ctx.Heap.Threshold = 1

	_, err = ctx.Heap.Allocate(uint32(idx))
	require.NoError(t, err)
	_, err = ctx.Heap.Allocate(uint32(idx))
	require.NoError(t, err)
	assert.Equal(t, 2, ctx.Heap.Repository().Len())

	require.NoError(t, ctx.MaybeCollect())
	assert.Equal(t, 0, ctx.Heap.Repository().Len())
}

func TestContextRootsWalksStatics(t *testing.T) {
	ctx := newTestContext(t)
	idx, err := ctx.VTables.Add(runtime.NewVirtualTable("Int", 8))
	require.NoError(t, err)
	obj, err := ctx.Heap.Allocate(uint32(idx))
	require.NoError(t, err)

	require.NoError(t, ctx.SetStaticAt(0, value.Object(obj)))
	roots := ctx.Roots()
	require.Len(t, roots, 1)
	assert.Same(t, obj, roots[0])
}
