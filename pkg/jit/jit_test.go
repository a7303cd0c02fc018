package jit

import (
	"testing"

	"github.com/kristofer/ovum/pkg/value"
	"github.com/stretchr/testify/assert"
)

func TestStubNeverCompiles(t *testing.T) {
	var e Executor = Stub{}
	assert.False(t, e.TryCompile())
	assert.False(t, e.TryCompile())
}

func TestStubRunIsHarmless(t *testing.T) {
	var e Executor = Stub{}
	assert.NoError(t, e.Run(value.NewStack()))
}
