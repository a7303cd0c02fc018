package exec

import "github.com/kristofer/ovum/pkg/jit"

// JitFunction wraps an inner Callable and an opaque JIT executor. Once
// the inner function's cumulative action count exceeds Threshold, every
// invocation first asks the executor to compile; on success it runs the
// compiled code directly against the stack, falling back to the
// interpreted body only if compilation or the compiled run fails (spec
// §4.3's JitFunction wrapper).
type JitFunction struct {
	Inner     Callable
	Executor  jit.Executor
	Threshold int64
}

// NewJitFunction wraps inner with executor, switching to compiled
// execution once inner's total action count exceeds threshold.
func NewJitFunction(inner Callable, executor jit.Executor, threshold int64) *JitFunction {
	return &JitFunction{Inner: inner, Executor: executor, Threshold: threshold}
}

func (j *JitFunction) ID() string              { return j.Inner.ID() }
func (j *JitFunction) Arity() int              { return j.Inner.Arity() }
func (j *JitFunction) ExecutionCount() int64   { return j.Inner.ExecutionCount() }
func (j *JitFunction) TotalActionCount() int64 { return j.Inner.TotalActionCount() }

// Execute delegates to the inner function, unless the action-count
// threshold has been crossed and the JIT executor successfully compiles
// and runs the function itself.
func (j *JitFunction) Execute(ctx *Context) (Outcome, error) {
	if j.Inner.TotalActionCount() > j.Threshold && j.Executor != nil {
		if j.Executor.TryCompile() {
			if err := j.Executor.Run(ctx.Stack); err == nil {
				return Normal, nil
			}
		}
	}
	return j.Inner.Execute(ctx)
}
