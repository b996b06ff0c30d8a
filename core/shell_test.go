package core

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmsh.dev/rmsh/core/config"
)

func testConfig() *config.Configuration {
	return &config.Configuration{Prompt: "$ ", RootPrompt: "# ", HistorySize: 16}
}

func newTestShell() (*Shell, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	sh := NewShell("rmsh", testConfig(), strings.NewReader(""), &out, &errOut, nil)
	return sh, &out, &errOut
}

func TestRunInputSimpleCommand(t *testing.T) {
	sh, out, _ := newTestShell()

	status := sh.RunInput("echo hello")
	assert.Equal(t, 0, status)
	assert.Equal(t, "hello\n", out.String())
}

func TestRunInputPipeline(t *testing.T) {
	sh, out, _ := newTestShell()

	status := sh.RunInput("echo one two | tr a-z A-Z")
	assert.Equal(t, 0, status)
	assert.Equal(t, "ONE TWO\n", out.String())
}

func TestRunInputParseError(t *testing.T) {
	sh, _, errOut := newTestShell()

	status := sh.RunInput("a |")
	assert.Equal(t, 2, status)
	assert.Equal(t, "rmsh: line 1: syntax error: unexpected end of file\n", errOut.String())
}

func TestRunInputKeepsLastStatus(t *testing.T) {
	sh, _, _ := newTestShell()

	assert.Equal(t, 1, sh.RunInput("sh -c 'exit 1'"))
	assert.Equal(t, 1, sh.LastStatus())

	assert.Equal(t, 0, sh.RunInput("true"))
	assert.Equal(t, 0, sh.LastStatus())

	// Blank input leaves the previous status alone.
	sh.RunInput("sh -c 'exit 7'")
	assert.Equal(t, 7, sh.RunInput("   "))
}

func TestRunInputCommandNotFound(t *testing.T) {
	sh, _, errOut := newTestShell()

	status := sh.RunInput("no-such-binary-here")
	assert.Equal(t, 127, status)
	assert.Equal(t, "rmsh: no-such-binary-here: Command not found\n", errOut.String())
}

func TestRunInputAssignmentOnly(t *testing.T) {
	sh, _, errOut := newTestShell()

	status := sh.RunInput("FOO=bar")
	assert.Equal(t, 1, status)
	assert.Contains(t, errOut.String(), "missing command")
}

func TestBuiltinExit(t *testing.T) {
	sh, _, _ := newTestShell()

	status := sh.RunInput("exit 3")
	assert.Equal(t, 3, status)
	assert.True(t, sh.exiting)
	assert.Equal(t, 3, sh.exitStatus)
}

func TestBuiltinExitDefaultsToLastStatus(t *testing.T) {
	sh, _, _ := newTestShell()

	sh.RunInput("sh -c 'exit 5'")
	status := sh.RunInput("exit")
	assert.Equal(t, 5, status)
}

func TestBuiltinCd(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(orig) })

	dir := t.TempDir()
	sh, _, errOut := newTestShell()

	status := sh.RunInput("cd " + dir)
	assert.Equal(t, 0, status)
	assert.Empty(t, errOut.String())

	got, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestBuiltinCdTooManyArguments(t *testing.T) {
	sh, _, errOut := newTestShell()

	status := sh.RunInput("cd a b")
	assert.Equal(t, 1, status)
	assert.Contains(t, errOut.String(), "too many arguments")
}

func TestBuiltinHistory(t *testing.T) {
	sh, out, _ := newTestShell()
	sh.Hist.Add("first command")
	sh.Hist.Add("second command")

	status := sh.RunInput("history")
	assert.Equal(t, 0, status)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first command")
	assert.Contains(t, lines[1], "second command")
}

func TestBuiltinHistoryClear(t *testing.T) {
	sh, _, _ := newTestShell()
	sh.Hist.Add("secret")

	status := sh.RunInput("history -c")
	assert.Equal(t, 0, status)
	assert.Equal(t, 0, sh.Hist.Len())
}

func TestBuiltinGating(t *testing.T) {
	sh, out, _ := newTestShell()
	sh.Hist.Add("entry")

	// A pipe disqualifies the builtin path; "history" then resolves (or
	// fails to) like any external command.
	sh.RunInput("history | cat")
	assert.NotContains(t, out.String(), "entry", "piped history must not hit the builtin")
}

func TestRunStreamExecutesTypedLine(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("echo hi\n\x04")
	sh := NewShell("rmsh", testConfig(), in, &out, &errOut, nil)

	status, err := sh.RunStream()
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Contains(t, out.String(), "hi\n")
	assert.Contains(t, out.String(), "^D\n")
}

func TestRunStreamExitBuiltin(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("exit 4\n")
	sh := NewShell("rmsh", testConfig(), in, &out, &errOut, nil)

	status, err := sh.RunStream()
	require.NoError(t, err)
	assert.Equal(t, 4, status)
}

func TestRunStreamRecordsHistory(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("true\n\x04")
	sh := NewShell("rmsh", testConfig(), in, &out, &errOut, nil)

	_, err := sh.RunStream()
	require.NoError(t, err)

	line, ok := sh.Hist.Get(0)
	require.True(t, ok)
	assert.Equal(t, "true", line)
}

func TestRunStreamCtrlCSubmitsNothing(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("garbage\x03\x04") // ^C then ^D
	sh := NewShell("rmsh", testConfig(), in, &out, &errOut, nil)

	status, err := sh.RunStream()
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, 0, sh.Hist.Len(), "a killed line never reaches history")
	assert.Contains(t, out.String(), "^C\n")
}
