//go:build darwin || freebsd || netbsd || openbsd

package term

import "golang.org/x/sys/unix"

// TIOCSETAW drains output before applying, matching tcsetattr(TCSADRAIN).
const (
	ioctlReadTermios  = unix.TIOCGETA
	ioctlWriteTermios = unix.TIOCSETAW
)
