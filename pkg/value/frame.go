package value

import "github.com/pkg/errors"

// ErrFrameStackEmpty is returned by frame-stack operations that require at
// least one frame but find none.
var ErrFrameStackEmpty = errors.New("frame stack is empty")

// Frame is a single call frame: a function's locals and its action
// counter. Frames live on a separate LIFO stack from operand Values; the
// frame stack never carries operand values.
type Frame struct {
	// FunctionName is diagnostic only -- it identifies the frame in error
	// messages and stack traces.
	FunctionName string

	// Locals holds the frame's local variables, indexed from zero.
	// SetLocal grows this slice on demand.
	Locals []Value

	// ActionCount counts leaf commands executed in this frame. It is
	// monotonic for the frame's lifetime and drives the JIT threshold.
	ActionCount int64
}

// NewFrame creates a frame with the given diagnostic name and an initial
// locals vector (typically the function's popped arguments, in call
// order).
func NewFrame(name string, locals []Value) *Frame {
	return &Frame{FunctionName: name, Locals: locals}
}

// Local reads the local at index i, or an error if out of range.
func (f *Frame) Local(i int) (Value, error) {
	if i < 0 || i >= len(f.Locals) {
		return Value{}, errors.Errorf("local index %d out of range (have %d)", i, len(f.Locals))
	}
	return f.Locals[i], nil
}

// SetLocal writes the local at index i, growing Locals if necessary.
func (f *Frame) SetLocal(i int, v Value) error {
	if i < 0 {
		return errors.Errorf("local index %d is negative", i)
	}
	if i >= len(f.Locals) {
		grown := make([]Value, i+1)
		copy(grown, f.Locals)
		f.Locals = grown
	}
	f.Locals[i] = v
	return nil
}

// FrameStack is the LIFO stack of call frames.
type FrameStack struct {
	frames []*Frame
}

// NewFrameStack returns an empty frame stack.
func NewFrameStack() *FrameStack {
	return &FrameStack{frames: make([]*Frame, 0, 32)}
}

// Push pushes a new frame.
func (fs *FrameStack) Push(f *Frame) {
	fs.frames = append(fs.frames, f)
}

// Pop removes and returns the top frame, or ErrFrameStackEmpty if empty.
func (fs *FrameStack) Pop() (*Frame, error) {
	if len(fs.frames) == 0 {
		return nil, ErrFrameStackEmpty
	}
	n := len(fs.frames) - 1
	f := fs.frames[n]
	fs.frames = fs.frames[:n]
	return f, nil
}

// Top returns the top frame without removing it, or ErrFrameStackEmpty if
// empty.
func (fs *FrameStack) Top() (*Frame, error) {
	if len(fs.frames) == 0 {
		return nil, ErrFrameStackEmpty
	}
	return fs.frames[len(fs.frames)-1], nil
}

// Depth returns the number of frames currently on the stack.
func (fs *FrameStack) Depth() int {
	return len(fs.frames)
}

// Frames returns the frame stack bottom-to-top. Used by the garbage
// collector to walk roots across every frame's locals.
func (fs *FrameStack) Frames() []*Frame {
	return fs.frames
}

// IncrementAction increments the current top frame's action counter by
// one. It fails if the frame stack is empty, matching the leaf-command
// prologue contract of spec §4.1.
func (fs *FrameStack) IncrementAction() error {
	top, err := fs.Top()
	if err != nil {
		return err
	}
	top.ActionCount++
	return nil
}
