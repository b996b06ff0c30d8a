package core

import (
	"bufio"
	"fmt"
	"io"

	"github.com/fatih/color"

	"rmsh.dev/rmsh/core/term"
)

// DebugInput dumps raw input bytes one per line until Ctrl-D, for checking
// what a terminal actually sends. The terminal is put into the same raw
// mode the editor uses.
func DebugInput(t *term.Terminal, in io.Reader, out io.Writer) error {
	if err := t.Save(); err != nil {
		return fmt.Errorf("tcgetattr: %w", err)
	}
	if err := t.MakeRaw(); err != nil {
		return fmt.Errorf("tcsetattr: %w", err)
	}
	defer t.Restore()

	hex := color.New(color.FgCyan).SprintfFunc()
	chr := color.New(color.FgGreen).SprintfFunc()

	reader := bufio.NewReader(in)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return err
		}

		if b < 0x20 || b == 0x7f {
			fmt.Fprintf(out, "%s %d\n", hex("\\0%x", b), b)
		} else {
			fmt.Fprintf(out, "%s %d %s\n", hex("\\0%x", b), b, chr("'%c'", b))
		}

		if b == 0x04 { // Ctrl-D
			return nil
		}
	}
}
