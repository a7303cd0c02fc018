package exec

import (
	"fmt"
	"strings"
)

// StackFrame captures diagnostic context for one level of the execution
// tree at the time a RuntimeError was raised: which function, which
// opcode-ish description, and the call-frame's action count.
type StackFrame struct {
	FunctionName string // function id, or a synthetic description
	Detail       string // opcode name / virtual method id / class name
	ActionCount  int64  // the owning frame's action count at the time
}

// RuntimeError is every error surfaced by the execution tree: stack
// underflow, type mismatch, missing function/vtable, division by zero,
// I/O failure, and so on (spec §7's runtime taxonomy). It carries a
// human-readable message plus the stack of frames active when it was
// raised, innermost first.
type RuntimeError struct {
	Message string
	Frames  []StackFrame
}

// Error implements error, rendering the message followed by a trace.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Frames) > 0 {
		b.WriteString("\n\nStack trace:")
		for _, f := range e.Frames {
			b.WriteString(fmt.Sprintf("\n  at %s", f.FunctionName))
			if f.Detail != "" {
				b.WriteString(fmt.Sprintf(" (%s)", f.Detail))
			}
			b.WriteString(fmt.Sprintf(" [actions: %d]", f.ActionCount))
		}
	}
	return b.String()
}

// NewRuntimeError builds a RuntimeError with the given message and an
// empty trace; callers append frames as the error unwinds.
func NewRuntimeError(message string) *RuntimeError {
	return &RuntimeError{Message: message}
}

// Newf builds a RuntimeError from a format string, for the common case
// of no pre-existing trace.
func Newf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// WithFrame returns a copy of e with f appended to its trace. Used by
// Function.Execute to annotate an error with the frame it unwound
// through, without losing frames already recorded deeper in the tree.
func (e *RuntimeError) WithFrame(f StackFrame) *RuntimeError {
	frames := make([]StackFrame, 0, len(e.Frames)+1)
	frames = append(frames, e.Frames...)
	frames = append(frames, f)
	return &RuntimeError{Message: e.Message, Frames: frames}
}
