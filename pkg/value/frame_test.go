package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameLocalsGrow(t *testing.T) {
	f := NewFrame("f", nil)
	require.NoError(t, f.SetLocal(3, Int(9)))
	assert.Len(t, f.Locals, 4)

	v, err := f.Local(3)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.Int())
}

func TestFrameLocalOutOfRange(t *testing.T) {
	f := NewFrame("f", []Value{Int(1)})
	_, err := f.Local(5)
	assert.Error(t, err)
}

func TestFrameStackPushPopTop(t *testing.T) {
	fs := NewFrameStack()
	_, err := fs.Top()
	assert.ErrorIs(t, err, ErrFrameStackEmpty)

	f1 := NewFrame("one", nil)
	f2 := NewFrame("two", nil)
	fs.Push(f1)
	fs.Push(f2)

	top, err := fs.Top()
	require.NoError(t, err)
	assert.Equal(t, "two", top.FunctionName)
	assert.Equal(t, 2, fs.Depth())

	popped, err := fs.Pop()
	require.NoError(t, err)
	assert.Equal(t, "two", popped.FunctionName)
	assert.Equal(t, 1, fs.Depth())
}

func TestFrameStackIncrementActionRequiresFrame(t *testing.T) {
	fs := NewFrameStack()
	assert.ErrorIs(t, fs.IncrementAction(), ErrFrameStackEmpty)

	fs.Push(NewFrame("f", nil))
	require.NoError(t, fs.IncrementAction())
	require.NoError(t, fs.IncrementAction())

	top, err := fs.Top()
	require.NoError(t, err)
	assert.EqualValues(t, 2, top.ActionCount)
}
