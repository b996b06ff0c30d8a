package term

import (
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
	xterm "golang.org/x/term"
)

// ErrNotTerminal is returned when terminal operations are attempted on a
// file descriptor that is not a tty.
var ErrNotTerminal = errors.New("not a terminal")

// Terminal owns the tty state for one interactive session: the saved cooked
// termios, raw-mode toggling, foreground process-group handoff, and the
// window-change flag set by SIGWINCH and polled by the prompt loop.
type Terminal struct {
	tty   *os.File
	saved *unix.Termios

	winch   atomic.Bool
	winchCh chan os.Signal
}

// NewTerminal wraps an open tty, typically os.Stdin.
func NewTerminal(tty *os.File) *Terminal {
	return &Terminal{tty: tty}
}

// Fd returns the underlying file descriptor.
func (t *Terminal) Fd() int { return int(t.tty.Fd()) }

// IsTerminal reports whether the wrapped descriptor is a tty.
func (t *Terminal) IsTerminal() bool {
	return xterm.IsTerminal(t.Fd())
}

// Save captures the current (cooked) terminal attributes so they can be
// restored after raw-mode editing and after jobs that fiddled with the
// line discipline.
func (t *Terminal) Save() error {
	tio, err := unix.IoctlGetTermios(t.Fd(), ioctlReadTermios)
	if err != nil {
		return err
	}
	t.saved = tio
	return nil
}

// MakeRaw switches the terminal into the editing mode the input decoder
// expects: no echo, no canonical buffering, no signal generation, no
// extended processing, and no XON/XOFF flow control. Save must have been
// called first.
func (t *Terminal) MakeRaw() error {
	if t.saved == nil {
		return ErrNotTerminal
	}
	raw := *t.saved
	raw.Iflag &^= unix.IXON
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	return unix.IoctlSetTermios(t.Fd(), ioctlWriteTermios, &raw)
}

// Restore puts back the attributes captured by Save.
func (t *Terminal) Restore() error {
	if t.saved == nil {
		return ErrNotTerminal
	}
	return unix.IoctlSetTermios(t.Fd(), ioctlWriteTermios, t.saved)
}

// Pgrp returns the terminal's foreground process group.
func (t *Terminal) Pgrp() (int, error) {
	return unix.IoctlGetInt(t.Fd(), unix.TIOCGPGRP)
}

// SetPgrp hands foreground ownership of the terminal to pgid.
func (t *Terminal) SetPgrp(pgid int) error {
	return unix.IoctlSetPointerInt(t.Fd(), unix.TIOCSPGRP, pgid)
}

// WindowSize returns the terminal's current column and row counts.
func (t *Terminal) WindowSize() (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(t.Fd(), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}

// NotifyResize starts watching SIGWINCH. The handler only sets a flag; the
// prompt loop observes it via ResizePending between input events.
func (t *Terminal) NotifyResize() {
	if t.winchCh != nil {
		return
	}
	t.winchCh = make(chan os.Signal, 1)
	signal.Notify(t.winchCh, syscall.SIGWINCH)
	go func() {
		for range t.winchCh {
			t.winch.Store(true)
		}
	}()
	t.winch.Store(true)
}

// StopResize unregisters the SIGWINCH watcher.
func (t *Terminal) StopResize() {
	if t.winchCh == nil {
		return
	}
	signal.Stop(t.winchCh)
	close(t.winchCh)
	t.winchCh = nil
}

// ResizePending reports and clears the window-change flag.
func (t *Terminal) ResizePending() bool {
	return t.winch.Swap(false)
}
