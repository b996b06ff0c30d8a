// Package term decodes raw terminal bytes into input events and owns the
// VT100 control sequences and termios state the line editor relies on.
package term

import (
	"errors"
	"unicode/utf8"
)

// Control identifies a decoded terminal control command.
type Control uint8

const (
	// ControlNone marks an Event that carries a text rune instead.
	ControlNone Control = iota

	ControlLineKill
	ControlExit
	ControlClear
	ControlEnter
	ControlTab
	ControlSearch

	ControlDelete
	ControlBackspace

	ControlHome
	ControlEnd
	ControlBack
	ControlForward

	ControlUp
	ControlDown
	ControlPageUp
	ControlPageDown
)

// Event is one complete unit of terminal input: either a decoded UTF-8 rune
// (Ctrl == ControlNone) or a control command with no text payload.
type Event struct {
	Ctrl Control
	Rune rune
}

// Text reports whether the event carries a rune.
func (e Event) Text() bool { return e.Ctrl == ControlNone }

var (
	errBareContinuation = errors.New("continuation byte without a lead byte")
	errBadContinuation  = errors.New("expected a continuation byte")
	errBadRune          = errors.New("invalid UTF-8 sequence")
	errUnknownControl   = errors.New("unknown control byte")
	errBadEscape        = errors.New("unrecognized escape sequence")
)

type decoderState uint8

const (
	stateLead decoderState = iota
	stateText
	stateEscape
)

// Decoder accumulates terminal bytes one at a time until they form a
// complete event. Multi-byte UTF-8 runes and ANSI escape sequences are
// buffered across calls; a Decoder therefore serves a single input stream.
type Decoder struct {
	state decoderState

	text [4]byte
	have int
	want int

	esc  [2]byte
	escN int
}

// Feed consumes one byte. done is true when a complete event was decoded.
// A non-nil error rejects the whole pending sequence; the decoder resets
// itself and the caller simply resumes feeding at the next byte.
func (d *Decoder) Feed(b byte) (ev Event, done bool, err error) {
	switch d.state {
	case stateText:
		return d.feedText(b)
	case stateEscape:
		return d.feedEscape(b)
	default:
		return d.feedLead(b)
	}
}

func (d *Decoder) reset() {
	*d = Decoder{}
}

// Single-byte control codes understood in lead position.
const (
	ctrlA     = 0x01
	ctrlB     = 0x02
	ctrlC     = 0x03
	ctrlD     = 0x04
	ctrlE     = 0x05
	ctrlF     = 0x06
	ctrlL     = 0x0c
	ctrlR     = 0x12
	asciiDEL  = 0x7f
	asciiESC  = 0x1b
	asciiTab  = '\t'
	asciiLine = '\n'
)

func isCntrl(b byte) bool {
	return b < 0x20 || b == asciiDEL
}

func (d *Decoder) feedLead(b byte) (Event, bool, error) {
	if b == asciiESC {
		d.state = stateEscape
		d.escN = 0
		return Event{}, false, nil
	}

	switch b {
	case ctrlA:
		return Event{Ctrl: ControlHome}, true, nil
	case ctrlB:
		return Event{Ctrl: ControlBack}, true, nil
	case ctrlC:
		return Event{Ctrl: ControlLineKill}, true, nil
	case ctrlD:
		return Event{Ctrl: ControlExit}, true, nil
	case ctrlE:
		return Event{Ctrl: ControlEnd}, true, nil
	case ctrlF:
		return Event{Ctrl: ControlForward}, true, nil
	case ctrlL:
		return Event{Ctrl: ControlClear}, true, nil
	case ctrlR:
		return Event{Ctrl: ControlSearch}, true, nil
	case asciiLine:
		return Event{Ctrl: ControlEnter}, true, nil
	case asciiTab:
		return Event{Ctrl: ControlTab}, true, nil
	case asciiDEL:
		return Event{Ctrl: ControlBackspace}, true, nil
	}

	if isCntrl(b) {
		return Event{}, false, errUnknownControl
	}

	switch size := leadSize(b); size {
	case 0:
		return Event{}, false, errBareContinuation
	case -1:
		return Event{}, false, errBadRune
	case 1:
		return Event{Rune: rune(b)}, true, nil
	default:
		d.state = stateText
		d.text[0] = b
		d.have = 1
		d.want = size
		return Event{}, false, nil
	}
}

func (d *Decoder) feedText(b byte) (Event, bool, error) {
	if b&0xc0 != 0x80 {
		d.reset()
		return Event{}, false, errBadContinuation
	}

	d.text[d.have] = b
	d.have++
	if d.have < d.want {
		return Event{}, false, nil
	}

	r, size := utf8.DecodeRune(d.text[:d.have])
	d.reset()
	if r == utf8.RuneError && size <= 1 {
		return Event{}, false, errBadRune
	}
	return Event{Rune: r}, true, nil
}

func (d *Decoder) feedEscape(b byte) (Event, bool, error) {
	if d.escN == 0 {
		if b != '[' && b != 'O' {
			d.reset()
			return Event{}, false, errBadEscape
		}
		d.esc[0] = b
		d.escN = 1
		return Event{}, false, nil
	}

	if d.esc[0] == 'O' {
		defer d.reset()
		switch b {
		case 'H':
			return Event{Ctrl: ControlHome}, true, nil
		case 'F':
			return Event{Ctrl: ControlEnd}, true, nil
		}
		return Event{}, false, errBadEscape
	}

	// d.esc[0] == '['
	if d.escN == 1 {
		if b >= '0' && b <= '9' {
			d.esc[1] = b
			d.escN = 2
			return Event{}, false, nil
		}

		defer d.reset()
		switch b {
		case 'A':
			return Event{Ctrl: ControlUp}, true, nil
		case 'B':
			return Event{Ctrl: ControlDown}, true, nil
		case 'C':
			return Event{Ctrl: ControlForward}, true, nil
		case 'D':
			return Event{Ctrl: ControlBack}, true, nil
		case 'H':
			return Event{Ctrl: ControlHome}, true, nil
		case 'F':
			return Event{Ctrl: ControlEnd}, true, nil
		}
		return Event{}, false, errBadEscape
	}

	// ESC [ <digit> must be terminated by '~'.
	digit := d.esc[1]
	d.reset()
	if b != '~' {
		return Event{}, false, errBadEscape
	}
	switch digit {
	case '1', '7':
		return Event{Ctrl: ControlHome}, true, nil
	case '3':
		return Event{Ctrl: ControlDelete}, true, nil
	case '4', '8':
		return Event{Ctrl: ControlEnd}, true, nil
	case '5':
		return Event{Ctrl: ControlPageUp}, true, nil
	case '6':
		return Event{Ctrl: ControlPageDown}, true, nil
	}
	return Event{}, false, errBadEscape
}

// leadSize classifies a UTF-8 lead byte: the total sequence length 1-4,
// 0 for a continuation byte, or -1 for a byte that can never start a rune.
func leadSize(b byte) int {
	switch {
	case b <= 0x7f:
		return 1
	case b&0xc0 == 0x80:
		return 0
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	default:
		return -1
	}
}
