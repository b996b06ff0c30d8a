package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// RedirKind is the operation a redirection performs on its target fd.
type RedirKind uint8

const (
	// RedirRead opens the path read-only (`<`).
	RedirRead RedirKind = iota
	// RedirWrite opens the path write-only, truncating (`>`).
	RedirWrite
	// RedirAppend opens the path write-only, appending (`>>`).
	RedirAppend
	// RedirReadWrite opens the path for reading and writing (`<>`).
	RedirReadWrite
	// RedirDupIn duplicates an existing source fd for input (`<&`).
	RedirDupIn
	// RedirDupOut duplicates an existing source fd for output (`>&`).
	RedirDupOut
)

// Redirection rebinds one file descriptor of a process before exec.
// Redirections apply in declaration order; a later one targeting the same
// fd overrides an earlier one.
type Redirection struct {
	FD   int
	Kind RedirKind
	Path string // target path for file redirections
	Src  int    // source fd for the dup forms
}

// Dup reports whether the redirection copies another fd instead of opening
// a path.
func (r Redirection) Dup() bool {
	return r.Kind == RedirDupIn || r.Kind == RedirDupOut
}

// ProcessSpec describes one pipeline stage before it is launched.
type ProcessSpec struct {
	// Argv is the argument vector; Argv[0] is resolved against PATH unless
	// it contains a path separator.
	Argv []string
	// Env holds NAME=value assignments that preceded the command word and
	// apply only to this process.
	Env []string
	// Redirs are the stage's redirections in declaration order.
	Redirs []Redirection
}

// Pipeline is an ordered chain of process specs; stage i's stdout feeds
// stage i+1's stdin.
type Pipeline struct {
	Procs []*ProcessSpec
}

// ErrInternal marks parser states that indicate a state-machine bug rather
// than bad user input. These abort the line and should never be reachable.
var ErrInternal = errors.New("internal parser error")

var assignRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

type redirOp struct {
	kind      RedirKind
	defaultFD int
	dup       bool
}

var redirOps = map[string]redirOp{
	"<":  {RedirRead, 0, false},
	">":  {RedirWrite, 1, false},
	">>": {RedirAppend, 1, false},
	"<>": {RedirReadWrite, 0, false},
	"<&": {RedirDupIn, 0, true},
	">&": {RedirDupOut, 1, true},
}

// Parse builds the pipeline for one submitted line. It returns (nil, nil)
// for blank input. Errors are *SyntaxError for bad input, or wrap
// ErrInternal for states that indicate a parser bug.
func Parse(input string) (*Pipeline, error) {
	lex := NewLexer(input)

	var procs []*ProcessSpec
	for {
		spec, sawPipe, err := parseProc(lex)
		if err != nil {
			return nil, err
		}

		empty := len(spec.Argv) == 0 && len(spec.Env) == 0 && len(spec.Redirs) == 0
		if empty {
			if len(procs) == 0 {
				return nil, nil
			}
			// A pipe was consumed but nothing followed it.
			return nil, &SyntaxError{Line: lex.Line(), Msg: "syntax error: unexpected end of file"}
		}

		procs = append(procs, spec)
		if !sawPipe {
			return &Pipeline{Procs: procs}, nil
		}
	}
}

// parseProc parses a single process spec. sawPipe is true when the spec was
// terminated by `|` rather than end of input.
func parseProc(lex *Lexer) (spec *ProcessSpec, sawPipe bool, err error) {
	spec = &ProcessSpec{}

	for {
		tok, err := lex.Pop()
		if err != nil {
			return nil, false, err
		}
		if tok == nil {
			return spec, false, nil
		}

		if tok.Meta {
			if tok.Val == "|" {
				if len(spec.Argv) == 0 {
					return nil, false, unexpectedToken(lex, tok.Val)
				}
				return spec, true, nil
			}
			op, ok := redirOps[tok.Val]
			if !ok {
				return nil, false, unexpectedToken(lex, tok.Val)
			}
			if err := parseRedirTarget(lex, spec, op, op.defaultFD); err != nil {
				return nil, false, err
			}
			continue
		}

		if tok.Premeta {
			meta, err := lex.Pop()
			if err != nil {
				return nil, false, err
			}
			if meta == nil || !meta.Meta {
				// The lexer guarantees a metachar token follows a premeta
				// word; anything else is a bug, not user input.
				return nil, false, fmt.Errorf("%w: unattended premeta token %q", ErrInternal, tok.Val)
			}
			if op, ok := redirOps[meta.Val]; ok {
				if fd, isFD := parseFD(tok.Val); isFD {
					if err := parseRedirTarget(lex, spec, op, fd); err != nil {
						return nil, false, err
					}
					continue
				}
			}
			// Not an fd prefix after all: keep the word, re-queue the
			// operator for the next iteration.
			lex.Push(meta)
		}

		if len(spec.Argv) == 0 && assignRegex.MatchString(tok.Val) {
			spec.Env = append(spec.Env, tok.Val)
			continue
		}
		spec.Argv = append(spec.Argv, tok.Val)
	}
}

// parseRedirTarget consumes the word following a redirection operator.
func parseRedirTarget(lex *Lexer, spec *ProcessSpec, op redirOp, fd int) error {
	tok, err := lex.Pop()
	if err != nil {
		return err
	}
	if tok == nil {
		return &SyntaxError{Line: lex.Line(), Msg: "syntax error: unexpected end of file"}
	}
	if tok.Meta {
		return unexpectedToken(lex, tok.Val)
	}

	redir := Redirection{FD: fd, Kind: op.kind}
	if op.dup {
		src, isFD := parseFD(tok.Val)
		if !isFD {
			return &SyntaxError{
				Line: lex.Line(),
				Msg:  fmt.Sprintf("%s: invalid file descriptor", tok.Val),
			}
		}
		redir.Src = src
	} else {
		redir.Path = tok.Val
	}
	spec.Redirs = append(spec.Redirs, redir)
	return nil
}

func unexpectedToken(lex *Lexer, val string) error {
	return &SyntaxError{
		Line: lex.Line(),
		Msg:  fmt.Sprintf("syntax error near unexpected token `%s'", val),
	}
}

// parseFD reports whether s is a valid non-negative decimal fd.
func parseFD(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
