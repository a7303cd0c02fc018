// Package driver wires together the vtable repository, function store,
// heap, and execution context, loads a bytecode source file, runs its
// init-static block once, and invokes the program's entry function
// (spec §6's "External interfaces"). It narrows the teacher's
// run/compile/repl command dispatch to this single run contract, since
// the bytecode format has no compile step and no REPL.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/ovum/pkg/builtin"
	"github.com/kristofer/ovum/pkg/bytecode"
	"github.com/kristofer/ovum/pkg/exec"
	"github.com/kristofer/ovum/pkg/jit"
	"github.com/kristofer/ovum/pkg/runtime"
	"github.com/kristofer/ovum/pkg/value"
	"github.com/rs/zerolog"
)

// EntryFunctionID is the fixed name the driver looks up after loading a
// program (spec §6: "Named _Global_Main_StringArray, arity 1").
const EntryFunctionID = "_Global_Main_StringArray"

// Options configures a single run. The zero value is usable except for
// the I/O streams, which should be set explicitly by the caller (cmd/ovum
// wires them to os.Stdin/os.Stdout/os.Stderr).
type Options struct {
	// JITThreshold is the action-count boundary a `-j <N>` flag supplies.
	// A JitFunction asks its executor to compile once the function's total
	// action count exceeds it; it has no effect when NewExecutor is nil,
	// which is how cmd/ovum treats a zero `-j`.
	JITThreshold int64
	// NewExecutor builds a fresh JIT executor per eligible function. Nil
	// makes every JitFunction a permanent interpreted pass-through,
	// matching the driver's default when no `-j` flag is given.
	NewExecutor func() jit.Executor
	// HeapThreshold becomes the heap's collection threshold: the
	// live-object count above which Context.MaybeCollect runs a cycle.
	// Non-positive disables it. Run itself never calls MaybeCollect, so
	// no collection happens during a run.
	HeapThreshold int

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Log zerolog.Logger
}

// Run loads the bytecode program at path, executes its init-static block
// (if any), then invokes _Global_Main_StringArray with programArgs packed
// into a StringArray, returning its int64 result as the process exit
// code. A VM failure (parse error, runtime error, missing entry function)
// is returned as err with a non-zero suggested exit code.
func Run(path string, programArgs []string, opts Options) (int64, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return 1, fmt.Errorf("reading %s: %w", path, err)
	}

	vtables := runtime.NewVirtualTableRepository()
	functions := exec.NewFunctionStore()
	if err := builtin.Install(vtables, functions); err != nil {
		return 1, fmt.Errorf("installing built-in classes: %w", err)
	}

	heap := runtime.NewHeap(vtables, opts.HeapThreshold, opts.Log)
	ctx := exec.NewContext(heap, vtables, functions, opts.Stdin, opts.Stdout, opts.Stderr, opts.Log)

	jitOpts := bytecode.JITOptions{NewExecutor: opts.NewExecutor, Threshold: opts.JITThreshold}
	parser := bytecode.NewParser(string(source), vtables, functions, jitOpts)
	initStatic, err := parser.Parse()
	if err != nil {
		return 1, fmt.Errorf("parsing %s: %w", path, err)
	}

	if initStatic != nil {
		ctx.Frames.Push(value.NewFrame("init-static", nil))
		_, runErr := initStatic.Execute(ctx)
		if _, popErr := ctx.Frames.Pop(); popErr != nil && runErr == nil {
			runErr = popErr
		}
		if runErr != nil {
			return 1, fmt.Errorf("running init-static: %w", runErr)
		}
	}

	entry, err := functions.ByID(EntryFunctionID)
	if err != nil {
		return 1, fmt.Errorf("locating entry function: %w", err)
	}

	argsValue, err := buildStringArray(ctx, programArgs)
	if err != nil {
		return 1, fmt.Errorf("building program arguments: %w", err)
	}
	ctx.Stack.Push(argsValue)

	depthBefore := ctx.Stack.Depth() - 1
	outcome, err := entry.Execute(ctx)
	if err != nil {
		return 1, fmt.Errorf("running %s: %w", EntryFunctionID, err)
	}
	if outcome != exec.Normal {
		return 1, fmt.Errorf("%s returned unexpected outcome %s", EntryFunctionID, outcome)
	}
	if ctx.Stack.Depth() != depthBefore+1 {
		return 1, fmt.Errorf("%s did not leave exactly one result on the stack", EntryFunctionID)
	}
	result, err := ctx.Stack.Pop()
	if err != nil {
		return 1, err
	}
	if !result.IsInt() {
		return 1, fmt.Errorf("%s must return Int, got %s", EntryFunctionID, result.Kind)
	}
	return result.Int(), nil
}

// buildStringArray allocates the StringArray the entry function receives,
// one String element per CLI trailing argument, in order. It goes
// through the same constructor and SetAt ABI a compiled `new
// StringArray(args.length, "")` followed by a SetAt loop would use,
// mirroring the reference executor's own argv-to-StringArray assembly:
// allocate a default empty String, run the StringArray(int, String)
// constructor, then call SetAt once per argument.
func buildStringArray(ctx *exec.Context, args []string) (value.Value, error) {
	defaultString, err := newString(ctx, "")
	if err != nil {
		return value.Value{}, err
	}

	ctx.Stack.Push(value.Int(int64(len(args))))
	ctx.Stack.Push(defaultString)
	constructStringArray, err := builtin.NewIdentCommand("CallConstructor", "_StringArray_int_String")
	if err != nil {
		return value.Value{}, err
	}
	ctx.Frames.Push(value.NewFrame("build-program-args", nil))
	_, runErr := constructStringArray.Execute(ctx)
	if _, popErr := ctx.Frames.Pop(); popErr != nil && runErr == nil {
		runErr = popErr
	}
	if runErr != nil {
		return value.Value{}, fmt.Errorf("constructing program-argument StringArray: %w", runErr)
	}
	arr, err := ctx.Stack.Pop()
	if err != nil {
		return value.Value{}, err
	}

	setAt, err := ctx.Functions.ByID("_StringArray_SetAt_<M>_int_String")
	if err != nil {
		return value.Value{}, err
	}
	for i, a := range args {
		strValue, err := newString(ctx, a)
		if err != nil {
			return value.Value{}, err
		}
		ctx.Stack.Push(arr)
		ctx.Stack.Push(value.Int(int64(i)))
		ctx.Stack.Push(strValue)
		if _, err := setAt.Execute(ctx); err != nil {
			return value.Value{}, fmt.Errorf("setting program argument %d: %w", i, err)
		}
		if _, err := ctx.Stack.Pop(); err != nil {
			return value.Value{}, err
		}
	}
	return arr, nil
}

func newString(ctx *exec.Context, s string) (value.Value, error) {
	idx, err := ctx.VTables.IndexOf("String")
	if err != nil {
		return value.Value{}, err
	}
	obj, err := ctx.Heap.Allocate(uint32(idx))
	if err != nil {
		return value.Value{}, err
	}
	obj.Str = s
	return value.Object(obj), nil
}
