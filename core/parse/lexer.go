// Package parse turns one submitted shell line into a Pipeline: a sequence
// of process specifications with argument vectors, environment assignment
// prefixes and redirections.
package parse

import (
	"fmt"
	"strings"
)

// IFS is the set of bytes that separate words.
const IFS = " \t\n"

// Metachars always terminate the current word and form operator tokens.
const Metachars = "|&;()<>"

// Token is a lexed word or operator.
type Token struct {
	// Val is the token text with quotes removed.
	Val string
	// Meta marks a token made of a run of metacharacter bytes.
	Meta bool
	// Premeta marks a word that was immediately followed by a
	// metacharacter, so the parser can test it as a redirection fd prefix.
	Premeta bool
}

// SyntaxError is a parse failure scoped to a single input line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Lexer tokenizes one input. Newlines are counted (including inside quotes)
// so errors can report a 1-based line number.
type Lexer struct {
	input    string
	pos      int
	line     int
	pushback []*Token
}

// NewLexer creates a tokenizer over one logical input line.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Line returns the 1-based line counter at the current position.
func (l *Lexer) Line() int { return l.line }

// Push returns a token to the lexer; the next Pop yields it again. Used for
// the single-token lookahead redirection parsing needs.
func (l *Lexer) Push(t *Token) {
	l.pushback = append(l.pushback, t)
}

func isMeta(b byte) bool {
	return strings.IndexByte(Metachars, b) >= 0
}

func isIFS(b byte) bool {
	return strings.IndexByte(IFS, b) >= 0
}

// Pop returns the next token, or nil at end of input.
func (l *Lexer) Pop() (*Token, error) {
	if n := len(l.pushback); n > 0 {
		t := l.pushback[n-1]
		l.pushback = l.pushback[:n-1]
		return t, nil
	}

	// Skip leading separators.
	for l.pos < len(l.input) && isIFS(l.input[l.pos]) {
		if l.input[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	if l.pos >= len(l.input) {
		return nil, nil
	}

	// With no word pending, a run of adjacent metacharacter bytes forms a
	// single operator token (e.g. ">>", "2>&1"'s ">&").
	if isMeta(l.input[l.pos]) {
		start := l.pos
		for l.pos < len(l.input) && isMeta(l.input[l.pos]) {
			l.pos++
		}
		return &Token{Val: l.input[start:l.pos], Meta: true}, nil
	}

	var word strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]

		if isIFS(c) || isMeta(c) {
			break
		}

		if c == '\'' || c == '"' {
			if err := l.lexQuoted(c, &word); err != nil {
				return nil, err
			}
			continue
		}

		word.WriteByte(c)
		l.pos++
	}

	tok := &Token{Val: word.String()}
	if l.pos < len(l.input) && isMeta(l.input[l.pos]) {
		tok.Premeta = true
	}
	return tok, nil
}

// lexQuoted consumes a quoted span verbatim, excluding the quotes
// themselves. The opening quote is at the current position.
func (l *Lexer) lexQuoted(quote byte, word *strings.Builder) error {
	l.pos++ // opening quote
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == quote {
			l.pos++ // closing quote
			return nil
		}
		if c == '\n' {
			l.line++
		}
		word.WriteByte(c)
		l.pos++
	}
	return &SyntaxError{
		Line: l.line,
		Msg:  fmt.Sprintf("unexpected EOF while looking for matching `%c'", quote),
	}
}
