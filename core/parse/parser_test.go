package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, input string) *ProcessSpec {
	t.Helper()
	pl, err := Parse(input)
	require.NoError(t, err)
	require.NotNil(t, pl)
	require.Len(t, pl.Procs, 1)
	return pl.Procs[0]
}

func TestParseSimpleCommand(t *testing.T) {
	spec := parseOne(t, `echo "a b" 'c d'`)

	assert.Equal(t, []string{"echo", "a b", "c d"}, spec.Argv)
	assert.Empty(t, spec.Env)
	assert.Empty(t, spec.Redirs)
}

func TestParseBlankInput(t *testing.T) {
	for _, input := range []string{"", "  \t ", "\n"} {
		pl, err := Parse(input)
		require.NoError(t, err)
		assert.Nil(t, pl, "input %q", input)
	}
}

func TestParseRedirections(t *testing.T) {
	spec := parseOne(t, "cat < in.txt > out.txt")

	assert.Equal(t, []string{"cat"}, spec.Argv)
	require.Len(t, spec.Redirs, 2)
	assert.Equal(t, Redirection{FD: 0, Kind: RedirRead, Path: "in.txt"}, spec.Redirs[0])
	assert.Equal(t, Redirection{FD: 1, Kind: RedirWrite, Path: "out.txt"}, spec.Redirs[1])
}

func TestParseRedirectionKinds(t *testing.T) {
	cases := map[string]Redirection{
		"cmd > f":  {FD: 1, Kind: RedirWrite, Path: "f"},
		"cmd >> f": {FD: 1, Kind: RedirAppend, Path: "f"},
		"cmd < f":  {FD: 0, Kind: RedirRead, Path: "f"},
		"cmd <> f": {FD: 0, Kind: RedirReadWrite, Path: "f"},
		"cmd <& 4": {FD: 0, Kind: RedirDupIn, Src: 4},
		"cmd >& 2": {FD: 1, Kind: RedirDupOut, Src: 2},
	}

	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			spec := parseOne(t, input)
			require.Len(t, spec.Redirs, 1)
			assert.Equal(t, want, spec.Redirs[0])
			assert.Equal(t, []string{"cmd"}, spec.Argv)
		})
	}
}

func TestParseFdPrefix(t *testing.T) {
	spec := parseOne(t, "cmd 2>&1")

	assert.Equal(t, []string{"cmd"}, spec.Argv)
	require.Len(t, spec.Redirs, 1)
	assert.Equal(t, Redirection{FD: 2, Kind: RedirDupOut, Src: 1}, spec.Redirs[0])
	assert.True(t, spec.Redirs[0].Dup())
}

func TestParseFdPrefixHighDescriptor(t *testing.T) {
	spec := parseOne(t, "cmd 3> trace.log")

	require.Len(t, spec.Redirs, 1)
	assert.Equal(t, Redirection{FD: 3, Kind: RedirWrite, Path: "trace.log"}, spec.Redirs[0])
}

func TestParseNonNumericPremetaIsAWord(t *testing.T) {
	// "2x" cannot be an fd prefix, so it stays in argv and the redirection
	// reverts to its default target fd.
	spec := parseOne(t, "echo 2x>out")

	assert.Equal(t, []string{"echo", "2x"}, spec.Argv)
	require.Len(t, spec.Redirs, 1)
	assert.Equal(t, Redirection{FD: 1, Kind: RedirWrite, Path: "out"}, spec.Redirs[0])
}

func TestParseRedirectionOrderPreserved(t *testing.T) {
	spec := parseOne(t, "cmd >a >b 2>&1")

	require.Len(t, spec.Redirs, 3)
	assert.Equal(t, "a", spec.Redirs[0].Path)
	assert.Equal(t, "b", spec.Redirs[1].Path)
	assert.Equal(t, 2, spec.Redirs[2].FD)
}

func TestParseEnvAssignments(t *testing.T) {
	spec := parseOne(t, "FOO=bar cmd")

	assert.Equal(t, []string{"FOO=bar"}, spec.Env)
	assert.Equal(t, []string{"cmd"}, spec.Argv)
}

func TestParseEnvAssignmentsStopAtFirstWord(t *testing.T) {
	spec := parseOne(t, "A=1 B=2 cmd C=3")

	assert.Equal(t, []string{"A=1", "B=2"}, spec.Env)
	assert.Equal(t, []string{"cmd", "C=3"}, spec.Argv)
}

func TestParseEnvAssignmentNames(t *testing.T) {
	// "1X=2" is not a valid NAME, so it is the command word.
	spec := parseOne(t, "1X=2 cmd")
	assert.Empty(t, spec.Env)
	assert.Equal(t, []string{"1X=2", "cmd"}, spec.Argv)

	spec = parseOne(t, "_x1=ok cmd")
	assert.Equal(t, []string{"_x1=ok"}, spec.Env)
}

func TestParsePipeline(t *testing.T) {
	pl, err := Parse("a | b | c")
	require.NoError(t, err)

	require.Len(t, pl.Procs, 3)
	assert.Equal(t, []string{"a"}, pl.Procs[0].Argv)
	assert.Equal(t, []string{"b"}, pl.Procs[1].Argv)
	assert.Equal(t, []string{"c"}, pl.Procs[2].Argv)
}

func TestParsePipelineWithRedirections(t *testing.T) {
	pl, err := Parse("cat <in | grep x | sort >out")
	require.NoError(t, err)

	require.Len(t, pl.Procs, 3)
	assert.Equal(t, Redirection{FD: 0, Kind: RedirRead, Path: "in"}, pl.Procs[0].Redirs[0])
	assert.Equal(t, []string{"grep", "x"}, pl.Procs[1].Argv)
	assert.Equal(t, Redirection{FD: 1, Kind: RedirWrite, Path: "out"}, pl.Procs[2].Redirs[0])
}

func TestParseSyntaxErrors(t *testing.T) {
	cases := map[string]string{
		"trailing pipe":        "a |",
		"leading pipe":         "| a",
		"double pipe":          "a || b",
		"ampersand":            "a & b",
		"semicolon":            "a; b",
		"parens":               "(a)",
		"missing redir target": "cmd >",
		"redir into operator":  "cmd > | b",
		"bad dup fd":           "cmd >&file",
		"unterminated quote":   "echo 'a",
		"pipe only":            "|",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			pl, err := Parse(input)
			assert.Nil(t, pl)
			var serr *SyntaxError
			require.ErrorAs(t, err, &serr, "input %q", input)
			assert.GreaterOrEqual(t, serr.Line, 1)
		})
	}
}

func TestParseErrorMessages(t *testing.T) {
	_, err := Parse("a |")
	require.Error(t, err)
	assert.Equal(t, "line 1: syntax error: unexpected end of file", err.Error())

	_, err = Parse("a && b")
	require.Error(t, err)
	assert.Equal(t, "line 1: syntax error near unexpected token `&&'", err.Error())
}

func TestParseAssignmentOnly(t *testing.T) {
	// An assignment with no command parses; rejecting it is the
	// executor's business, not the parser's.
	pl, err := Parse("FOO=bar")
	require.NoError(t, err)
	require.Len(t, pl.Procs, 1)
	assert.Empty(t, pl.Procs[0].Argv)
	assert.Equal(t, []string{"FOO=bar"}, pl.Procs[0].Env)
}
