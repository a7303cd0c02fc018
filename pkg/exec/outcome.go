// Package exec implements the Ovum execution tree: the family of
// Executable node kinds that directly interpret program behavior, plus
// the function store and the execution context every node runs against.
package exec

// Outcome is the non-error result of running an Executable node.
type Outcome uint8

const (
	// Normal means the node ran to completion with no control transfer.
	Normal Outcome = iota
	// Break unwinds the innermost enclosing loop body.
	Break
	// Continue restarts the innermost enclosing loop's condition check.
	Continue
	// Return unwinds to the nearest enclosing function boundary.
	Return
	// ConditionFalse is used only internally by ConditionalExecution and
	// IfMultibranch to signal that a branch's condition did not hold.
	ConditionFalse
)

// String renders o for diagnostics and tests.
func (o Outcome) String() string {
	switch o {
	case Normal:
		return "Normal"
	case Break:
		return "Break"
	case Continue:
		return "Continue"
	case Return:
		return "Return"
	case ConditionFalse:
		return "ConditionFalse"
	default:
		return "Unknown"
	}
}
