// Package job launches parsed pipelines as operating system processes:
// it wires pipes between stages, applies redirections, manages process
// groups and terminal foreground ownership, and aggregates exit status.
package job

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"rmsh.dev/rmsh/core/parse"
	"rmsh.dev/rmsh/core/term"
)

// Status is the outcome of one pipeline stage.
type Status struct {
	// Code is the exit code; for a signaled process it is 128+signal.
	Code int
	// Signal is the terminating signal, or 0 for a normal exit.
	Signal syscall.Signal
}

// Result aggregates a completed job.
type Result struct {
	// Statuses holds one entry per pipeline stage, in declaration order.
	Statuses []Status
	// Last is the status of the final (terminal-facing) stage; it becomes
	// the shell's last exit status.
	Last Status
}

// Executor materializes pipelines into processes. The zero value is not
// usable; fill in the I/O endpoints and environment first.
type Executor struct {
	// Name prefixes diagnostics, e.g. "rmsh".
	Name string
	// Fs is the filesystem consulted for PATH resolution.
	Fs afero.Fs
	// Env is the base environment for children; per-command assignments
	// are merged over it.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive enables job control: children get their own process
	// group, and the first stage takes terminal foreground ownership when
	// its stdin is the terminal.
	Interactive bool
	// Term is the controlling terminal; required when Interactive.
	Term *term.Terminal
	// ShellPgid is the shell's own process group, restored as the
	// terminal's foreground group after the job.
	ShellPgid int
}

type stage struct {
	spec    *parse.ProcessSpec
	cmd     *exec.Cmd
	started bool
	status  Status
}

// Run executes one pipeline to completion and returns the per-stage
// statuses. Spawn failures of individual stages are reported to Stderr and
// recorded as nonzero statuses; only failures that prevent the job from
// being assembled at all (a pipe that cannot be created, an empty argv)
// return an error.
func (x *Executor) Run(pl *parse.Pipeline) (Result, error) {
	if pl == nil || len(pl.Procs) == 0 {
		return Result{}, errors.New("empty pipeline")
	}
	for _, spec := range pl.Procs {
		if len(spec.Argv) == 0 {
			return Result{}, errors.New("missing command")
		}
	}

	n := len(pl.Procs)
	stages := make([]*stage, n)
	for i, spec := range pl.Procs {
		stages[i] = &stage{spec: spec}
	}

	// Parent-side descriptors (pipe ends, redirection targets) that must
	// be closed once every stage has been spawned, so downstream stages
	// observe EOF.
	var parentClose []io.Closer
	closeParentFiles := func() {
		for _, c := range parentClose {
			c.Close()
		}
		parentClose = nil
	}
	defer closeParentFiles()

	pathEnv := envValue(x.Env, "PATH")
	pgid := 0

	var prevRead *os.File
	for i, st := range stages {
		var stdin io.Reader = x.Stdin
		var stdout io.Writer = x.Stdout
		if i > 0 {
			stdin = prevRead
		}
		if i < n-1 {
			r, w, err := os.Pipe()
			if err != nil {
				return Result{}, fmt.Errorf("pipe: %w", err)
			}
			parentClose = append(parentClose, r, w)
			stdout = w
			prevRead = r
		}

		path, err := LookPath(x.Fs, pathEnv, st.spec.Argv[0])
		if err != nil {
			fmt.Fprintf(x.Stderr, "%s: %s: Command not found\n", x.Name, st.spec.Argv[0])
			st.status = Status{Code: 127}
			continue
		}

		cmd := exec.Command(path)
		cmd.Args = st.spec.Argv
		cmd.Env = mergeEnv(x.Env, st.spec.Env)

		if err := x.applyStdio(cmd, stdin, stdout, st.spec.Redirs, &parentClose); err != nil {
			fmt.Fprintf(x.Stderr, "%s: %v\n", x.Name, err)
			st.status = Status{Code: 1}
			continue
		}

		if x.Interactive {
			attr := &syscall.SysProcAttr{Setpgid: true}
			if i == 0 {
				// The first stage establishes the job's process group and,
				// when connected to the terminal, takes foreground
				// ownership. The runtime performs the tcsetpgrp between
				// fork and exec, before the child's signal dispositions
				// are restored by the exec itself.
				if x.Term != nil && stdin == x.Stdin && x.Term.IsTerminal() {
					attr.Foreground = true
					attr.Ctty = x.Term.Fd()
				}
			} else {
				attr.Pgid = pgid
			}
			cmd.SysProcAttr = attr
		}

		if err := cmd.Start(); err != nil {
			fmt.Fprintf(x.Stderr, "%s: %s: %v\n", x.Name, st.spec.Argv[0], err)
			st.status = Status{Code: 1}
			continue
		}
		st.cmd = cmd
		st.started = true
		if i == 0 {
			pgid = cmd.Process.Pid
		}
	}

	// The children own the pipe ends now.
	closeParentFiles()

	// Wait for every started stage; completions arrive in whatever order
	// the stages finish.
	var g errgroup.Group
	for _, st := range stages {
		if !st.started {
			continue
		}
		st := st
		g.Go(func() error {
			_ = st.cmd.Wait()
			st.status = waitStatus(st.cmd)
			return nil
		})
	}
	_ = g.Wait()

	if x.Interactive && x.Term != nil && x.Term.IsTerminal() {
		// Take the terminal back and undo whatever the job did to the
		// line discipline.
		if err := x.Term.SetPgrp(x.ShellPgid); err != nil {
			fmt.Fprintf(x.Stderr, "%s: tcsetpgrp: %v\n", x.Name, err)
		}
		if err := x.Term.Restore(); err != nil {
			fmt.Fprintf(x.Stderr, "%s: tcsetattr: %v\n", x.Name, err)
		}
	}

	result := Result{Statuses: make([]Status, n)}
	for i, st := range stages {
		result.Statuses[i] = st.status
	}
	result.Last = result.Statuses[n-1]

	// Ctrl-C delivered through the kernel's signal path echoes ^C without
	// a newline; compensate so the next prompt starts on a fresh line.
	if result.Last.Signal == syscall.SIGINT {
		fmt.Fprintln(x.Stdout)
	}

	return result, nil
}

// applyStdio binds the stage's standard streams from the pipeline wiring,
// then applies its redirections in declaration order (later redirections
// override earlier ones targeting the same fd). Descriptors 3 and up are
// passed through ExtraFiles.
func (x *Executor) applyStdio(cmd *exec.Cmd, stdin io.Reader, stdout io.Writer, redirs []parse.Redirection, parentClose *[]io.Closer) error {
	fds := map[int]any{
		0: stdin,
		1: stdout,
		2: x.Stderr,
	}

	maxFD := 2
	for _, r := range redirs {
		if r.Dup() {
			src, ok := fds[r.Src]
			if !ok {
				return fmt.Errorf("%d: bad file descriptor", r.Src)
			}
			fds[r.FD] = src
		} else {
			f, err := os.OpenFile(r.Path, openFlags(r.Kind), 0644)
			if err != nil {
				return fmt.Errorf("open %s: %w", r.Path, err)
			}
			*parentClose = append(*parentClose, f)
			fds[r.FD] = f
		}
		if r.FD > maxFD {
			maxFD = r.FD
		}
	}

	var err error
	if cmd.Stdin, err = asReader(fds[0]); err != nil {
		return fmt.Errorf("fd 0: %w", err)
	}
	if cmd.Stdout, err = asWriter(fds[1]); err != nil {
		return fmt.Errorf("fd 1: %w", err)
	}
	if cmd.Stderr, err = asWriter(fds[2]); err != nil {
		return fmt.Errorf("fd 2: %w", err)
	}

	if maxFD > 2 {
		extra := make([]*os.File, maxFD-2)
		for fd := 3; fd <= maxFD; fd++ {
			v, ok := fds[fd]
			if !ok {
				// Gap between redirected descriptors; hold it open on
				// /dev/null so the target fd number still lines up.
				devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
				if err != nil {
					return fmt.Errorf("open %s: %w", os.DevNull, err)
				}
				*parentClose = append(*parentClose, devNull)
				extra[fd-3] = devNull
				continue
			}
			f, ok := v.(*os.File)
			if !ok {
				return fmt.Errorf("fd %d: bad file descriptor", fd)
			}
			extra[fd-3] = f
		}
		cmd.ExtraFiles = extra
	}
	return nil
}

func asReader(v any) (io.Reader, error) {
	if r, ok := v.(io.Reader); ok {
		return r, nil
	}
	return nil, errors.New("not readable")
}

func asWriter(v any) (io.Writer, error) {
	if w, ok := v.(io.Writer); ok {
		return w, nil
	}
	return nil, errors.New("not writable")
}

func openFlags(kind parse.RedirKind) int {
	switch kind {
	case parse.RedirRead:
		return os.O_RDONLY
	case parse.RedirAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case parse.RedirReadWrite:
		return os.O_RDWR | os.O_CREATE
	default: // parse.RedirWrite
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
}

// waitStatus maps a wait result to a Status: normal exits keep their code,
// signaled processes report 128+signal with the signal recorded.
func waitStatus(cmd *exec.Cmd) Status {
	ps := cmd.ProcessState
	if ps == nil {
		// Wait itself failed; the process outcome is unknown.
		return Status{Code: 1}
	}
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		return Status{Code: ps.ExitCode()}
	}
	if ws.Signaled() {
		sig := ws.Signal()
		return Status{Code: 128 + int(sig), Signal: sig}
	}
	return Status{Code: ws.ExitStatus()}
}

// mergeEnv overlays per-command NAME=value assignments on a base
// environment, replacing existing names.
func mergeEnv(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	replaced := make(map[string]bool, len(extra))
	for _, kv := range extra {
		name, _, _ := strings.Cut(kv, "=")
		replaced[name] = true
	}
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if !replaced[name] {
			out = append(out, kv)
		}
	}
	return append(out, extra...)
}

// envValue fetches NAME from an environment list; the last entry wins.
func envValue(env []string, name string) string {
	var val string
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			val = v
		}
	}
	return val
}
