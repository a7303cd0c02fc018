package exec

import "github.com/kristofer/ovum/pkg/value"

// Function is a plain, uncached, uncompiled execution-tree function: an
// id, an arity, a body Block, and aggregate counters carried across
// every invocation for the lifetime of the function store entry.
type Function struct {
	id   string
	args int

	Body Executable

	executionCount   int64
	totalActionCount int64
}

// NewFunction builds a Function with the given id, arity, and body.
func NewFunction(id string, arity int, body Executable) *Function {
	return &Function{id: id, args: arity, Body: body}
}

// ID returns the function's identity string.
func (f *Function) ID() string { return f.id }

// Arity returns the function's declared argument count.
func (f *Function) Arity() int { return f.args }

// ExecutionCount returns how many times the function body has run to
// completion (successfully or with an error that still popped the
// frame).
func (f *Function) ExecutionCount() int64 { return f.executionCount }

// TotalActionCount returns the cumulative action count across every
// invocation's frame; JitFunction compares this against its threshold.
func (f *Function) TotalActionCount() int64 { return f.totalActionCount }

// Execute pops exactly Arity values in call order into a new frame's
// locals, runs Body, folds the frame's action count into the running
// total, and always pops the frame -- on success or on error (spec
// §4.3's Function execution steps 1-5).
func (f *Function) Execute(ctx *Context) (Outcome, error) {
	if ctx.Stack.Depth() < f.args {
		return 0, Newf("%s: insufficient arguments: need %d, have %d", f.id, f.args, ctx.Stack.Depth())
	}
	locals, err := ctx.Stack.PopN(f.args)
	if err != nil {
		return 0, Newf("%s: %s", f.id, err.Error())
	}

	frame := value.NewFrame(f.id, locals)
	ctx.Frames.Push(frame)

	outcome, bodyErr := f.Body.Execute(ctx)

	f.totalActionCount += frame.ActionCount
	f.executionCount++

	if _, popErr := ctx.Frames.Pop(); popErr != nil && bodyErr == nil {
		bodyErr = Newf("%s: %s", f.id, popErr.Error())
	}

	if bodyErr != nil {
		if rerr, ok := bodyErr.(*RuntimeError); ok {
			return 0, rerr.WithFrame(StackFrame{FunctionName: f.id, ActionCount: frame.ActionCount})
		}
		return 0, bodyErr
	}

	if outcome == Return {
		return Normal, nil
	}
	return outcome, nil
}
