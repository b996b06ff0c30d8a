package term

import (
	"fmt"
	"strconv"
)

// VT100 sequences emitted by the editor. ESC 7 / ESC 8 are used for cursor
// save/restore because Apple Terminal does not honor ESC [s / ESC [u.
const (
	ClearScreen   = "\x1b[2J"
	CursorSave    = "\x1b7"
	CursorRestore = "\x1b8"
	ClearToEOL    = "\x1b[K"
)

// CursorForward moves the cursor n columns right. Empty for n <= 0.
func CursorForward(n int) string {
	if n <= 0 {
		return ""
	}
	return "\x1b[" + strconv.Itoa(n) + "C"
}

// CursorBack moves the cursor n columns left. Empty for n <= 0.
func CursorBack(n int) string {
	if n <= 0 {
		return ""
	}
	return "\x1b[" + strconv.Itoa(n) + "D"
}

// CursorMove moves the cursor by a signed column delta.
func CursorMove(n int) string {
	if n > 0 {
		return CursorForward(n)
	}
	return CursorBack(-n)
}

// CursorColumn places the cursor at a 1-based column on the current row.
func CursorColumn(col int) string {
	return "\x1b[" + strconv.Itoa(col) + "G"
}

// CursorRow places the cursor at a 1-based row, keeping the column.
func CursorRow(row int) string {
	return "\x1b[" + strconv.Itoa(row) + "d"
}

// CursorTo places the cursor at a 1-based row and column.
func CursorTo(row, col int) string {
	return fmt.Sprintf("\x1b[%d;%dH", row, col)
}
