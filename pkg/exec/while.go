package exec

// WhileExecution re-evaluates its condition sub-block before every
// iteration of its body sub-block.
type WhileExecution struct {
	Condition Executable
	Body      Executable
}

// NewWhileExecution pairs a condition with the body run while it holds.
func NewWhileExecution(condition, body Executable) *WhileExecution {
	return &WhileExecution{Condition: condition, Body: body}
}

// Execute loops: run Condition; a non-Normal outcome from it propagates.
// On Normal, pop and require a bool; false ends the loop with Normal.
// True runs Body: Break ends the loop with Normal, Continue restarts,
// Return propagates, Normal continues the loop.
func (w *WhileExecution) Execute(ctx *Context) (Outcome, error) {
	for {
		condOutcome, err := w.Condition.Execute(ctx)
		if err != nil {
			return 0, err
		}
		if condOutcome != Normal {
			return condOutcome, nil
		}

		top, err := ctx.Stack.Pop()
		if err != nil {
			return 0, NewRuntimeError(err.Error())
		}
		if !top.IsBool() {
			return 0, Newf("while condition must leave a bool on the stack, got %s", top.Kind)
		}
		if !top.Bool() {
			return Normal, nil
		}

		bodyOutcome, err := w.Body.Execute(ctx)
		if err != nil {
			return 0, err
		}
		switch bodyOutcome {
		case Break:
			return Normal, nil
		case Continue, Normal:
			continue
		case Return:
			return Return, nil
		default:
			return 0, Newf("while body produced unexpected outcome %s", bodyOutcome)
		}
	}
}
