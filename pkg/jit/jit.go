// Package jit defines the opaque just-in-time compilation boundary that
// JitFunction delegates to once a function's action count crosses its
// configured threshold. The VM never assumes anything about how a real
// JIT would generate code; it only calls the two operations below.
package jit

import "github.com/kristofer/ovum/pkg/value"

// Executor is the contract a JIT backend implements. TryCompile attempts
// to produce and cache native code for whatever function last invoked it;
// it may return false any number of times, including always. Run executes
// the previously compiled code directly against stack, consuming its
// arguments and pushing its result the same way the interpreted path
// would.
type Executor interface {
	TryCompile() bool
	Run(stack *value.Stack) error
}

// Stub is a trivial Executor whose TryCompile always fails, making any
// JitFunction wrapping it a transparent pass-through to the interpreted
// body. cmd/ovum installs it as the executor factory when `-j` is
// positive; otherwise the driver leaves the executor nil.
type Stub struct{}

// TryCompile always reports failure.
func (Stub) TryCompile() bool { return false }

// Run is never called on a Stub, since TryCompile never succeeds, but is
// implemented to satisfy Executor.
func (Stub) Run(stack *value.Stack) error { return nil }
