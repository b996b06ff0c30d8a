//go:build linux

package term

import "golang.org/x/sys/unix"

// TCSETSW drains output before applying, matching tcsetattr(TCSADRAIN).
const (
	ioctlReadTermios  = unix.TCGETS
	ioctlWriteTermios = unix.TCSETSW
)
