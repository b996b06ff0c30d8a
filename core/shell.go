// Package core wires the shell together: the interactive prompt loop, the
// builtins, the debug input dump, and the SSH front end.
package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"rmsh.dev/rmsh/core/config"
	"rmsh.dev/rmsh/core/editor"
	"rmsh.dev/rmsh/core/history"
	"rmsh.dev/rmsh/core/job"
	"rmsh.dev/rmsh/core/parse"
	"rmsh.dev/rmsh/core/term"
)

const (
	EnvHome   = "HOME"
	EnvPath   = "PATH"
	EnvPrompt = "PS1"
)

// Shell runs parsed input against the operating system and keeps the
// session state: history, last exit status, and the exit request from the
// exit builtin.
type Shell struct {
	Name   string
	Config *config.Configuration
	Hist   *history.Ring
	Exec   *job.Executor
	Log    *log.Logger

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	lastStatus int
	exiting    bool
	exitStatus int
}

// NewShell builds a shell reading from in and writing to out/errOut. The
// executor starts non-interactive; Run upgrades it when it owns a tty.
func NewShell(name string, cfg *config.Configuration, in io.Reader, out, errOut io.Writer, logger *log.Logger) *Shell {
	sh := &Shell{
		Name:   name,
		Config: cfg,
		Hist:   history.NewRing(cfg.HistorySize),
		Log:    logger,
		In:     in,
		Out:    out,
		ErrOut: errOut,
	}
	sh.Exec = &job.Executor{
		Name:   name,
		Fs:     afero.NewOsFs(),
		Env:    os.Environ(),
		Stdin:  in,
		Stdout: out,
		Stderr: errOut,
	}
	return sh
}

// prompt picks PS1: the environment wins, then the configured prompt for
// the current uid.
func (s *Shell) prompt() string {
	if ps1 := os.Getenv(EnvPrompt); ps1 != "" {
		return ps1
	}
	return s.Config.PromptForUID(os.Getuid())
}

// Run is the interactive entry point on a local tty. It moves the shell
// into the foreground, takes ownership of the terminal, and loops the
// prompt until Ctrl-D or the exit builtin.
func (s *Shell) Run(t *term.Terminal) (int, error) {
	shPgid := unix.Getpgrp()

	// Loop until the terminal says we are the foreground job. SIGTTIN has
	// its default disposition here, so the kill stops us until a job
	// control shell resumes us in the foreground.
	for {
		pgid, err := t.Pgrp()
		if err != nil {
			return 1, fmt.Errorf("tcgetpgrp: %w", err)
		}
		if pgid == shPgid {
			break
		}
		_ = unix.Kill(0, unix.SIGTTIN)
		shPgid = unix.Getpgrp()
	}

	// Take our own process group and the terminal. Setpgid fails with
	// EPERM for a session leader, which is fine.
	_ = unix.Setpgid(0, 0)
	shPgid = unix.Getpgrp()
	if err := t.SetPgrp(shPgid); err != nil {
		return 1, fmt.Errorf("tcsetpgrp: %w", err)
	}
	if err := t.Save(); err != nil {
		return 1, fmt.Errorf("tcgetattr: %w", err)
	}

	s.Exec.Interactive = true
	s.Exec.Term = t
	s.Exec.ShellPgid = shPgid

	// Keep the shell alive across job-control signals. The children exec
	// with default dispositions, so this does not leak to them; Ignore
	// would, through the inherited SIG_IGN.
	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP,
		syscall.SIGTTOU, syscall.SIGTTIN)
	go func() {
		for range sigCh {
		}
	}()
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()

	t.NotifyResize()
	defer t.StopResize()

	reader := bufio.NewReader(s.In)
	ed := editor.New(s.Out, s.Hist)

	for {
		ps1 := s.prompt()
		io.WriteString(s.Out, ps1)

		if err := t.MakeRaw(); err != nil {
			return 1, fmt.Errorf("tcsetattr: %w", err)
		}
		line, exit, err := s.editLine(reader, ed, t, ps1)
		if rerr := t.Restore(); rerr != nil {
			return 1, fmt.Errorf("tcsetattr: %w", rerr)
		}
		if err != nil {
			return 1, err
		}
		if exit {
			return s.lastStatus, nil
		}
		if line == "" {
			continue
		}

		s.Hist.Add(line)
		s.RunInput(line)
		if s.exiting {
			return s.exitStatus, nil
		}
	}
}

// RunStream runs the same prompt loop without a controlling terminal, for
// transports like SSH where the remote client owns the real tty and the
// byte stream is already raw.
func (s *Shell) RunStream() (int, error) {
	reader := bufio.NewReader(s.In)
	ed := editor.New(s.Out, s.Hist)

	for {
		ps1 := s.prompt()
		io.WriteString(s.Out, ps1)

		line, exit, err := s.editLine(reader, ed, nil, ps1)
		if err != nil {
			return 1, err
		}
		if exit {
			return s.lastStatus, nil
		}
		if line == "" {
			continue
		}

		s.Hist.Add(line)
		s.RunInput(line)
		if s.exiting {
			return s.exitStatus, nil
		}
	}
}

// editLine reads decoded events into the editor until a line is submitted
// or the session ends. Malformed byte sequences are dropped; the decoder
// resynchronizes on the next lead byte.
func (s *Shell) editLine(reader *bufio.Reader, ed *editor.Editor, t *term.Terminal, ps1 string) (line string, exit bool, err error) {
	ed.Reset(ps1)
	var dec term.Decoder

	for {
		if t != nil && t.ResizePending() {
			ed.Redraw()
		}

		b, err := reader.ReadByte()
		if errors.Is(err, io.EOF) {
			io.WriteString(s.Out, "\n")
			return "", true, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("read: %w", err)
		}

		ev, done, err := dec.Feed(b)
		if err != nil {
			if s.Log != nil {
				s.Log.Debug().Err(err).Int("byte", int(b)).Msg("dropped input")
			}
			continue
		}
		if !done {
			continue
		}

		switch act, text := ed.Handle(ev); act {
		case editor.ActionSubmit:
			return text, false, nil
		case editor.ActionExit:
			return "", true, nil
		}
	}
}

// RunInput parses and executes one input. It is the single entry point for
// interactive submissions, -c commands, and piped scripts, and returns the
// resulting exit status.
func (s *Shell) RunInput(input string) int {
	pl, err := parse.Parse(input)
	if err != nil {
		if errors.Is(err, parse.ErrInternal) && s.Log != nil {
			s.Log.Error().Err(err).Msg("parser invariant violated")
		}
		fmt.Fprintf(s.ErrOut, "%s: %v\n", s.Name, err)
		s.lastStatus = 2
		return s.lastStatus
	}
	if pl == nil {
		return s.lastStatus
	}

	if status, ok := s.runBuiltin(pl); ok {
		s.lastStatus = status
		return status
	}

	res, err := s.Exec.Run(pl)
	if err != nil {
		fmt.Fprintf(s.ErrOut, "%s: %v\n", s.Name, err)
		s.lastStatus = 1
		return s.lastStatus
	}
	s.lastStatus = res.Last.Code
	return s.lastStatus
}

// LastStatus returns the exit status of the most recent input.
func (s *Shell) LastStatus() int {
	return s.lastStatus
}
