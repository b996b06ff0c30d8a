package core

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pborman/getopt/v2"

	"rmsh.dev/rmsh/core/parse"
)

// AllBuiltins holds a list of all registered shell builtins.
var AllBuiltins = make(map[string]Builtin)

type Builtin interface {
	Main(s *Shell, args []string) int
}

type BuiltinFunc func(s *Shell, args []string) int

func (f BuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ Builtin = (BuiltinFunc)(nil)

// runBuiltin dispatches a builtin when the pipeline is a bare single
// command: one stage, no redirections, no environment assignments.
// Anything else goes to the executor, pipes and all.
func (s *Shell) runBuiltin(pl *parse.Pipeline) (int, bool) {
	if len(pl.Procs) != 1 {
		return 0, false
	}
	spec := pl.Procs[0]
	if len(spec.Argv) == 0 || len(spec.Env) != 0 || len(spec.Redirs) != 0 {
		return 0, false
	}
	builtin, ok := AllBuiltins[spec.Argv[0]]
	if !ok {
		return 0, false
	}
	return builtin.Main(s, spec.Argv), true
}

// Cd is the cd shell builtin.
func Cd(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		args = append(args, os.Getenv(EnvHome))
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.ErrOut, "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(s.ErrOut, "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Exit quits the shell after the current input, with an optional status.
func Exit(s *Shell, args []string) int {
	status := s.lastStatus
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.ErrOut, "%s: %s: numeric argument required\n", args[0], args[1])
			n = 2
		}
		status = n
	}
	s.exiting = true
	s.exitStatus = status
	return status
}

// History displays or clears the history list.
func History(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		w := s.ErrOut
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Display or manipulate the history list")
		fmt.Fprintln(w, "Display the history list with line numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	if *clear {
		s.Hist.Clear()
		return 0
	}

	// Oldest first, numbered from 1 like the interactive row order reads.
	for i := s.Hist.Len() - 1; i >= 0; i-- {
		line, ok := s.Hist.Get(i)
		if !ok {
			continue
		}
		fmt.Fprintf(s.Out, "% 5d  %s\n", s.Hist.Len()-i, line)
	}
	return 0
}

func init() {
	AllBuiltins["cd"] = BuiltinFunc(Cd)
	AllBuiltins["exit"] = BuiltinFunc(Exit)
	AllBuiltins["history"] = BuiltinFunc(History)
}
