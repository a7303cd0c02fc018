package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProgram(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "program.ovm")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunReturnsEntryFunctionResult(t *testing.T) {
	path := writeProgram(t, `
function : 1 _Global_Main_StringArray {
	PushInt 42
	Return
}
`)
	var stdout, stderr bytes.Buffer
	code, err := Run(path, nil, Options{
		Stdin:  bytes.NewReader(nil),
		Stdout: &stdout,
		Stderr: &stderr,
		Log:    zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), code)
}

func TestRunExecutesInitStaticBeforeEntry(t *testing.T) {
	path := writeProgram(t, `
init-static {
	PushInt 7
	SetStatic 0
}

function : 1 _Global_Main_StringArray {
	LoadStatic 0
	Return
}
`)
	var stdout, stderr bytes.Buffer
	code, err := Run(path, nil, Options{
		Stdin:  bytes.NewReader(nil),
		Stdout: &stdout,
		Stderr: &stderr,
		Log:    zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), code)
}

func TestRunPassesProgramArgumentsAsStringArray(t *testing.T) {
	path := writeProgram(t, `
function : 1 _Global_Main_StringArray {
	LoadLocal 0
	CallVirtual Length
	Return
}
`)
	var stdout, stderr bytes.Buffer
	code, err := Run(path, []string{"alpha", "beta", "gamma"}, Options{
		Stdin:  bytes.NewReader(nil),
		Stdout: &stdout,
		Stderr: &stderr,
		Log:    zerolog.Nop(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), code)
}

func TestRunMissingEntryFunctionErrors(t *testing.T) {
	path := writeProgram(t, `
function : 0 _Global_NotTheEntryPoint {
	PushInt 0
	Return
}
`)
	var stdout, stderr bytes.Buffer
	_, err := Run(path, nil, Options{
		Stdin:  bytes.NewReader(nil),
		Stdout: &stdout,
		Stderr: &stderr,
		Log:    zerolog.Nop(),
	})
	assert.Error(t, err)
}

func TestRunMissingFileErrors(t *testing.T) {
	_, err := Run(filepath.Join(t.TempDir(), "nope.ovm"), nil, Options{
		Stdin:  bytes.NewReader(nil),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		Log:    zerolog.Nop(),
	})
	assert.Error(t, err)
}
