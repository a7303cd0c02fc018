package value

import "github.com/pkg/errors"

// ErrStackUnderflow is returned by Pop and Top when the operand stack does
// not hold enough values to satisfy the request.
var ErrStackUnderflow = errors.New("insufficient arguments: operand stack underflow")

// Stack is the machine's shared LIFO operand stack. Depth is bounded only
// by host memory; every opcode documents how many values it pops and
// pushes against this type.
type Stack struct {
	values []Value
}

// NewStack returns an empty operand stack.
func NewStack() *Stack {
	return &Stack{values: make([]Value, 0, 64)}
}

// Push pushes v onto the stack.
func (s *Stack) Push(v Value) {
	s.values = append(s.values, v)
}

// Pop removes and returns the top value, or ErrStackUnderflow if empty.
func (s *Stack) Pop() (Value, error) {
	if len(s.values) == 0 {
		return Value{}, ErrStackUnderflow
	}
	n := len(s.values) - 1
	v := s.values[n]
	s.values = s.values[:n]
	return v, nil
}

// Top returns the top value without removing it, or ErrStackUnderflow if
// empty.
func (s *Stack) Top() (Value, error) {
	if len(s.values) == 0 {
		return Value{}, ErrStackUnderflow
	}
	return s.values[len(s.values)-1], nil
}

// Depth returns the current number of values on the stack.
func (s *Stack) Depth() int {
	return len(s.values)
}

// PopN pops exactly n values and returns them in call order: element 0
// is the deepest (leftmost-pushed) of the n values, matching the
// argument-ordering convention of spec §4.5 -- the caller pushes
// arguments leftmost-first, so the leftmost argument (the last one
// popped) becomes local index 0 in the callee's frame.
func (s *Stack) PopN(n int) ([]Value, error) {
	if n < 0 {
		return nil, errors.New("PopN: negative count")
	}
	if len(s.values) < n {
		return nil, ErrStackUnderflow
	}
	out := make([]Value, n)
	copy(out, s.values[len(s.values)-n:])
	s.values = s.values[:len(s.values)-n]
	// out is already in push order: index 0 is the least recently pushed
	// of the popped group, i.e. the leftmost argument the caller pushed
	// first. That is exactly call order, matching the Function prologue,
	// which makes that leftmost argument local index 0.
	return out, nil
}

// Rotate rotates the top n values of the stack so that the previous top
// becomes position n-1 (i.e. the bottom of the rotated window). Rotate 0
// is invalid and returns an error; Rotate 1 is a no-op.
func (s *Stack) Rotate(n int) error {
	if n <= 0 {
		return errors.New("Rotate: n must be >= 1")
	}
	if len(s.values) < n {
		return ErrStackUnderflow
	}
	window := s.values[len(s.values)-n:]
	top := window[len(window)-1]
	copy(window[1:], window[:len(window)-1])
	window[0] = top
	return nil
}

// Swap exchanges the top two values of the stack.
func (s *Stack) Swap() error {
	if len(s.values) < 2 {
		return ErrStackUnderflow
	}
	n := len(s.values)
	s.values[n-1], s.values[n-2] = s.values[n-2], s.values[n-1]
	return nil
}

// Snapshot returns a copy of every value currently on the stack, bottom
// to top. Used by the garbage collector to walk the operand stack as part
// of the root set without draining it.
func (s *Stack) Snapshot() []Value {
	out := make([]Value, len(s.values))
	copy(out, s.values)
	return out
}

// Dup duplicates the top value.
func (s *Stack) Dup() error {
	top, err := s.Top()
	if err != nil {
		return err
	}
	s.Push(top)
	return nil
}
