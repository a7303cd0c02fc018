package exec

// ConditionalExecution holds a condition sub-block and a body sub-block.
// It is the building block IfMultibranch composes; it is never itself
// produced by top-level `if` syntax in isolation.
type ConditionalExecution struct {
	Condition Executable
	Body      Executable
}

// NewConditionalExecution pairs a condition with the body to run when it
// holds.
func NewConditionalExecution(condition, body Executable) *ConditionalExecution {
	return &ConditionalExecution{Condition: condition, Body: body}
}

// Execute runs Condition; a non-Normal outcome propagates as-is. On
// Normal, it pops the operand-stack top, requires a bool, and either
// runs Body (returning its outcome) or returns ConditionFalse.
func (c *ConditionalExecution) Execute(ctx *Context) (Outcome, error) {
	outcome, err := c.Condition.Execute(ctx)
	if err != nil {
		return 0, err
	}
	if outcome != Normal {
		return outcome, nil
	}

	top, err := ctx.Stack.Pop()
	if err != nil {
		return 0, NewRuntimeError(err.Error())
	}
	if !top.IsBool() {
		return 0, Newf("if condition must leave a bool on the stack, got %s", top.Kind)
	}
	if !top.Bool() {
		return ConditionFalse, nil
	}
	return c.Body.Execute(ctx)
}

// IfMultibranch is an ordered list of ConditionalExecution branches plus
// an optional else block. The parser stores a source-level `else` block
// in Else; Branches hold only the `if` and `else if` conditions.
type IfMultibranch struct {
	Branches []*ConditionalExecution
	Else     Executable
}

// NewIfMultibranch builds an IfMultibranch over branches with an optional
// else block.
func NewIfMultibranch(branches []*ConditionalExecution, elseBlock Executable) *IfMultibranch {
	return &IfMultibranch{Branches: branches, Else: elseBlock}
}

// Execute evaluates branches in order. The first whose outcome is not
// ConditionFalse wins. If every branch yields ConditionFalse, it runs
// Else if present, else returns Normal.
func (m *IfMultibranch) Execute(ctx *Context) (Outcome, error) {
	for _, branch := range m.Branches {
		outcome, err := branch.Execute(ctx)
		if err != nil {
			return 0, err
		}
		if outcome != ConditionFalse {
			return outcome, nil
		}
	}
	if m.Else != nil {
		return m.Else.Execute(ctx)
	}
	return Normal, nil
}
