package exec

import (
	"io"
	"math/rand"

	"github.com/kristofer/ovum/pkg/jit"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
	"github.com/rs/zerolog"
)

// Context bundles everything an Executable needs to run: the operand
// stack, the frame stack, the managed heap and its vtable store, the
// function store, the process-wide statics vector, the standard streams,
// a seeded random source, and the JIT executor factory (spec §4.3, §9
// "Global mutable state" -- these live as owned fields of the context,
// never as language-level or package-level globals).
type Context struct {
	Stack     *value.Stack
	Frames    *value.FrameStack
	Heap      *runtime.Heap
	VTables   *runtime.VirtualTableRepository
	Functions *FunctionStore

	Statics []value.Value

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Rand *rand.Rand

	NewJIT func() jit.Executor

	Log zerolog.Logger
}

// NewContext builds a Context over fresh stacks and the given stores,
// heap, and streams. NewJIT defaults to a factory for the stub executor;
// JitFunction does not consult it, since each wrapper holds the executor
// the parser gave it.
func NewContext(heap *runtime.Heap, vtables *runtime.VirtualTableRepository, functions *FunctionStore, stdin io.Reader, stdout, stderr io.Writer, log zerolog.Logger) *Context {
	return &Context{
		Stack:     value.NewStack(),
		Frames:    value.NewFrameStack(),
		Heap:      heap,
		VTables:   vtables,
		Functions: functions,
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		Rand:      rand.New(rand.NewSource(1)),
		NewJIT:    func() jit.Executor { return jit.Stub{} },
		Log:       log,
	}
}

// StaticAt returns the static slot at i. A non-negative i beyond the
// vector reads as the zero Value without growing it; SetStaticAt grows it.
func (c *Context) StaticAt(i int) (value.Value, error) {
	if i < 0 {
		return value.Value{}, Newf("static index %d is negative", i)
	}
	if i >= len(c.Statics) {
		return value.Value{}, nil
	}
	return c.Statics[i], nil
}

// SetStaticAt writes the static slot at i, growing the vector as needed.
func (c *Context) SetStaticAt(i int, v value.Value) error {
	if i < 0 {
		return Newf("static index %d is negative", i)
	}
	if i >= len(c.Statics) {
		grown := make([]value.Value, i+1)
		copy(grown, c.Statics)
		c.Statics = grown
	}
	c.Statics[i] = v
	return nil
}

// Roots returns the current GC root set: every object reference Value in
// statics, on the operand stack, and in every frame's locals (spec §5's
// mark phase, §9's "Root set" glossary entry).
func (c *Context) Roots() []*runtime.Object {
	var roots []*runtime.Object
	appendIfObject := func(v value.Value) {
		if !v.IsObject() || v.Obj() == nil {
			return
		}
		if obj, ok := v.Obj().(*runtime.Object); ok {
			roots = append(roots, obj)
		}
	}

	for _, v := range c.Statics {
		appendIfObject(v)
	}
	for _, v := range c.Stack.Snapshot() {
		appendIfObject(v)
	}
	for _, frame := range c.Frames.Frames() {
		for _, v := range frame.Locals {
			appendIfObject(v)
		}
	}
	return roots
}

// MaybeCollect runs a GC cycle if the heap's live-object count exceeds
// its threshold (spec §5's "Garbage-collection trigger"). Destructors are
// invoked by pushing the unreachable object and calling its vtable's
// `_destructor_<M>` real function through the function store, exactly as
// a normal zero-result, one-argument function invocation.
func (c *Context) MaybeCollect() error {
	if !c.Heap.ShouldCollect() {
		return nil
	}
	_, err := c.Heap.Collect(c.Roots(), c.invokeDestructor)
	return err
}

// CallVirtual dispatches virtualID against obj: resolves obj's vtable,
// translates the virtual id to a real id, looks the real id up in the
// function store, and runs it with obj as local 0 and any already-pushed
// extra arguments following it (spec §4.4's "Virtual dispatch"). The
// opcode that calls this has already popped obj off the top of the
// stack, leaving exactly Arity()-1 extra arguments beneath; obj is
// reinserted below them so the callee's frame sees the receiver at
// local 0 regardless of arity, matching every built-in method's
// convention. It returns the single result value the callee left on
// the stack.
func (c *Context) CallVirtual(obj *runtime.Object, virtualID string) (value.Value, error) {
	vt, err := c.Heap.VTableOf(obj)
	if err != nil {
		return value.Value{}, Newf("virtual call %s: %s", virtualID, err.Error())
	}
	realID, err := vt.RealFunctionID(virtualID)
	if err != nil {
		return value.Value{}, Newf("virtual call %s on %s: %s", virtualID, vt.Name(), err.Error())
	}
	fn, err := c.Functions.ByID(realID)
	if err != nil {
		return value.Value{}, Newf("virtual call %s on %s: %s", virtualID, vt.Name(), err.Error())
	}

	extraArgs, err := c.Stack.PopN(fn.Arity() - 1)
	if err != nil {
		return value.Value{}, Newf("virtual call %s on %s: %s", virtualID, vt.Name(), err.Error())
	}

	depthBefore := c.Stack.Depth()
	c.Stack.Push(value.Object(obj))
	for _, a := range extraArgs {
		c.Stack.Push(a)
	}
	outcome, err := fn.Execute(c)
	if err != nil {
		return value.Value{}, err
	}
	if outcome != Normal {
		return value.Value{}, Newf("virtual call %s on %s returned unexpected outcome %s", virtualID, vt.Name(), outcome)
	}
	if c.Stack.Depth() != depthBefore+1 {
		return value.Value{}, Newf("virtual call %s on %s did not leave exactly one result on the stack", virtualID, vt.Name())
	}
	return c.Stack.Pop()
}

// objectOfValue extracts the *runtime.Object referenced by v, failing if
// v is not a non-null object reference.
func (c *Context) objectOfValue(v value.Value) (*runtime.Object, error) {
	if !v.IsObject() || v.Obj() == nil {
		return nil, Newf("expected a non-null object reference")
	}
	obj, ok := v.Obj().(*runtime.Object)
	if !ok {
		return nil, Newf("value does not hold a runtime object")
	}
	return obj, nil
}

// vtableOfValue resolves the vtable of the object v references.
func (c *Context) vtableOfValue(v value.Value) (*runtime.VirtualTable, error) {
	obj, err := c.objectOfValue(v)
	if err != nil {
		return nil, err
	}
	return c.Heap.VTableOf(obj)
}

func (c *Context) invokeDestructor(obj *runtime.Object, vt *runtime.VirtualTable) error {
	realID, err := vt.RealFunctionID("_destructor_<M>")
	if err != nil {
		// No destructor declared for this class: nothing to run.
		return nil
	}
	fn, err := c.Functions.ByID(realID)
	if err != nil {
		return err
	}
	c.Stack.Push(value.Object(obj))
	outcome, err := fn.Execute(c)
	if err != nil {
		return err
	}
	if outcome != Normal {
		return Newf("destructor %s returned unexpected outcome %s", realID, outcome)
	}
	return nil
}
