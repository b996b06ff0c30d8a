// Package editor implements the interactive line editor: a window over the
// history ring with a live row 0, a rune-boundary cursor, incremental
// reverse search, and VT100 redraw output.
package editor

import (
	"io"
	"strings"
	"unicode/utf8"

	"rmsh.dev/rmsh/core/history"
	"rmsh.dev/rmsh/core/term"
)

// searchPrompt is the reverse-search status line with an empty query; the
// query is inserted before the closing "': ".
const (
	searchPrompt     = "(reverse-search)`': "
	searchPromptLen  = len(searchPrompt)
	searchQueryStart = searchPromptLen - 3
)

// Action tells the input loop what to do after an event was applied.
type Action int

const (
	// ActionContinue means keep reading input.
	ActionContinue Action = iota
	// ActionSubmit means the returned line is complete (possibly empty).
	ActionSubmit
	// ActionExit means the session is over (Ctrl-D).
	ActionExit
)

// Editor edits one logical line against a history window. Row 0 is the live
// line; row r >= 1 shows the history entry of age r-1. History rows are
// copied on first modification, the ring itself is never written.
type Editor struct {
	out  io.Writer
	hist *history.Ring
	ps1  string

	// rows holds materialized (privately editable) row buffers.
	rows map[int][]byte
	row  int
	col  int // byte offset into the current row, always on a rune boundary

	search *searchState
}

// searchState exists only while reverse search is active; its presence is
// the mode discriminator.
type searchState struct {
	query []byte
}

// New returns an editor writing redraw output to out. Call Reset before the
// first event of every prompt.
func New(out io.Writer, hist *history.Ring) *Editor {
	return &Editor{out: out, hist: hist, rows: map[int][]byte{}}
}

// Reset discards all edit state and arms the editor for a fresh prompt. ps1
// is the prompt string already printed by the caller; the editor needs its
// width for redraws.
func (e *Editor) Reset(ps1 string) {
	e.ps1 = ps1
	e.rows = map[int][]byte{}
	e.row = 0
	e.col = 0
	e.search = nil
}

// Searching reports whether reverse search is active.
func (e *Editor) Searching() bool { return e.search != nil }

// Line returns the current row's text.
func (e *Editor) Line() string { return e.rowText(e.row) }

// Handle applies one decoded event and returns what the input loop should
// do next. The returned line is meaningful only for ActionSubmit.
func (e *Editor) Handle(ev term.Event) (Action, string) {
	if ev.Text() {
		if e.search != nil {
			e.searchInsert(ev.Rune)
		} else {
			e.insert(ev.Rune)
		}
		return ActionContinue, ""
	}

	switch ev.Ctrl {
	case term.ControlExit:
		e.emit("^D\n")
		return ActionExit, ""

	case term.ControlEnter:
		e.emit("\n")
		return ActionSubmit, e.rowText(e.row)

	case term.ControlLineKill:
		e.emit("^C\n")
		return ActionSubmit, ""

	case term.ControlSearch:
		if e.search != nil {
			e.nextSearch()
		} else {
			e.enterSearch()
		}

	case term.ControlTab:
		// No completion; tab only backs out of search mode.
		if e.search != nil {
			e.exitSearch(nil)
		}

	case term.ControlBackspace:
		if e.search != nil {
			e.searchBackspace()
		} else {
			e.backspace()
		}

	case term.ControlUp:
		e.historyUp()

	case term.ControlDown:
		e.historyDown()

	case term.ControlClear:
		e.clear()

	case term.ControlDelete, term.ControlBack, term.ControlForward,
		term.ControlHome, term.ControlEnd:
		e.motion(ev.Ctrl)
	}
	// Page up/down decode but have no editor binding.
	return ActionContinue, ""
}

// Redraw repaints the whole current line in place, cursor untouched. The
// prompt loop calls it after a window size change.
func (e *Editor) Redraw() {
	if e.search != nil {
		e.redrawLine("", e.searchLine(), 0)
		return
	}
	e.redrawLine(e.ps1, e.rowText(e.row), 0)
}

// rowText resolves a row to its text: a materialized buffer if present,
// otherwise the underlying history entry.
func (e *Editor) rowText(row int) string {
	if buf, ok := e.rows[row]; ok {
		return string(buf)
	}
	if row > 0 {
		if line, ok := e.hist.Get(row - 1); ok {
			return line
		}
	}
	return ""
}

// materialize returns a privately owned buffer for the current row, copying
// the history snapshot on first edit.
func (e *Editor) materialize() []byte {
	if buf, ok := e.rows[e.row]; ok {
		return buf
	}
	buf := []byte(e.rowText(e.row))
	e.rows[e.row] = buf
	return buf
}

func (e *Editor) emit(s string) {
	io.WriteString(e.out, s)
}

// redrawLine reprints the whole line (prompt plus text), restores the
// cursor, then moves it by a signed column delta.
func (e *Editor) redrawLine(ps1, text string, moves int) {
	e.emit(term.CursorSave + term.CursorColumn(1) + ps1 + text +
		term.ClearToEOL + term.CursorRestore + term.CursorMove(moves))
}

// redrawLineEOL reprints the whole line and leaves the cursor at its end.
func (e *Editor) redrawLineEOL(ps1, text string) {
	e.emit(term.CursorColumn(1) + ps1 + text +
		term.CursorSave + term.ClearToEOL + term.CursorRestore)
}

// redrawSuffix reprints from the cursor to end of line, optionally moving
// the cursor before the reprint and after it.
func (e *Editor) redrawSuffix(suffix string, before, after int) {
	e.emit(term.CursorMove(before) + term.CursorSave + term.ClearToEOL +
		suffix + term.CursorRestore + term.CursorMove(after))
}

// insert places one rune at the cursor in line mode.
func (e *Editor) insert(r rune) {
	var enc [utf8.UTFMax]byte
	n := utf8.EncodeRune(enc[:], r)

	buf := e.materialize()
	buf = append(buf[:e.col], append(append([]byte{}, enc[:n]...), buf[e.col:]...)...)
	e.rows[e.row] = buf

	e.redrawSuffix(string(buf[e.col:]), 0, 1)
	e.col += n
}

// backspace removes the rune left of the cursor in line mode.
func (e *Editor) backspace() {
	if e.col == 0 {
		return
	}
	buf := e.materialize()
	_, del := utf8.DecodeLastRune(buf[:e.col])
	e.col -= del
	buf = append(buf[:e.col], buf[e.col+del:]...)
	e.rows[e.row] = buf

	e.redrawSuffix(string(buf[e.col:]), -1, 0)
}

// deleteAt removes the rune under the cursor. With a non-nil moves
// accumulator the redraw is deferred to the caller.
func (e *Editor) deleteAt(moves *int) {
	text := e.rowText(e.row)
	if e.col >= len(text) {
		return
	}
	buf := e.materialize()
	_, del := utf8.DecodeRune(buf[e.col:])
	buf = append(buf[:e.col], buf[e.col+del:]...)
	e.rows[e.row] = buf

	if moves == nil {
		e.redrawSuffix(string(buf[e.col:]), 0, 0)
	}
}

func (e *Editor) cursorBack(moves *int) {
	if e.col == 0 {
		return
	}
	_, n := utf8.DecodeLastRuneInString(e.rowText(e.row)[:e.col])
	e.col -= n
	if moves == nil {
		e.emit(term.CursorMove(-1))
	} else {
		*moves--
	}
}

func (e *Editor) cursorForward(moves *int) {
	text := e.rowText(e.row)
	if e.col >= len(text) {
		return
	}
	_, n := utf8.DecodeRuneInString(text[e.col:])
	e.col += n
	if moves == nil {
		e.emit(term.CursorMove(1))
	} else {
		*moves++
	}
}

func (e *Editor) cursorHome(moves *int) {
	delta := 0
	for e.col > 0 {
		e.cursorBack(&delta)
	}
	if moves == nil {
		e.emit(term.CursorMove(delta))
	} else {
		*moves += delta
	}
}

func (e *Editor) cursorEnd(moves *int) {
	delta := 0
	for e.col < len(e.rowText(e.row)) {
		e.cursorForward(&delta)
	}
	if moves == nil {
		e.emit(term.CursorMove(delta))
	} else {
		*moves += delta
	}
}

// motion handles the cursor controls that are only meaningful in line mode.
// In search mode they first exit the search, then apply, with one combined
// full-line redraw.
func (e *Editor) motion(ctrl term.Control) {
	var fn func(*int)
	switch ctrl {
	case term.ControlDelete:
		fn = e.deleteAt
	case term.ControlBack:
		fn = e.cursorBack
	case term.ControlForward:
		fn = e.cursorForward
	case term.ControlHome:
		fn = e.cursorHome
	default:
		fn = e.cursorEnd
	}

	if e.search == nil {
		fn(nil)
		return
	}
	moves := 0
	e.exitSearch(&moves)
	fn(&moves)
	e.redrawLine(e.ps1, e.rowText(e.row), moves)
}

// historyUp moves to the next older row, cursor at end of line.
func (e *Editor) historyUp() {
	if _, ok := e.hist.Get(e.row); !ok {
		return
	}
	var ignored int
	e.exitSearch(&ignored)

	e.row++
	text := e.rowText(e.row)
	e.col = len(text)
	e.redrawLineEOL(e.ps1, text)
}

// historyDown moves toward the live row, cursor at end of line.
func (e *Editor) historyDown() {
	if e.row == 0 {
		return
	}
	var ignored int
	e.exitSearch(&ignored)

	e.row--
	text := e.rowText(e.row)
	e.col = len(text)
	e.redrawLineEOL(e.ps1, text)
}

// clear wipes the screen and reprints the prompt line at the top, keeping
// the cursor column.
func (e *Editor) clear() {
	moves := 0
	e.exitSearch(&moves)

	e.emit(term.CursorMove(moves) + term.CursorSave + term.ClearScreen +
		term.CursorTo(1, 1) + e.ps1 + e.rowText(e.row) +
		term.CursorRestore + term.CursorRow(1))
}

// searchLine renders the reverse-search status line for the current state.
func (e *Editor) searchLine() string {
	return searchPrompt[:searchQueryStart] + string(e.search.query) +
		searchPrompt[searchQueryStart:] + e.rowText(e.row)
}

// find scans rows from startRow toward older history for the first row
// containing query, leftmost occurrence. It reports the row, the byte
// offset of the match, and whether anything matched.
func (e *Editor) find(startRow int, query string) (int, int, bool) {
	for i := startRow; i <= e.hist.Len(); i++ {
		if idx := strings.Index(e.rowText(i), query); idx >= 0 {
			return i, idx, true
		}
	}
	return 0, 0, false
}

// prefixRunes counts the runes of text before byte offset col; this is the
// cursor's visual distance from the start of the text.
func prefixRunes(text string, col int) int {
	return utf8.RuneCountInString(text[:col])
}

// enterSearch switches to reverse search seeded with the current row as the
// displayed match and an empty query.
func (e *Editor) enterSearch() {
	e.search = &searchState{}

	moves := utf8.RuneCountInString(searchPrompt) - utf8.RuneCountInString(e.ps1)
	e.redrawLine("", e.searchLine(), moves)
}

// searchInsert appends one rune to the query and re-runs the search from
// the newest row. A failed search keeps the current match.
func (e *Editor) searchInsert(r rune) {
	e.search.query = utf8.AppendRune(e.search.query, r)

	moves := 1
	if row, col, ok := e.find(0, string(e.search.query)); ok {
		moves += prefixRunes(e.rowText(row), col) - prefixRunes(e.rowText(e.row), e.col)
		e.row, e.col = row, col
	}
	e.redrawLine("", e.searchLine(), moves)
}

// searchBackspace removes the last query rune and re-runs the search from
// the newest row, so the match can move back toward recent history.
func (e *Editor) searchBackspace() {
	if len(e.search.query) == 0 {
		return
	}
	_, del := utf8.DecodeLastRune(e.search.query)
	e.search.query = e.search.query[:len(e.search.query)-del]

	moves := -1
	if row, col, ok := e.find(0, string(e.search.query)); ok {
		moves += prefixRunes(e.rowText(row), col) - prefixRunes(e.rowText(e.row), e.col)
		e.row, e.col = row, col
	}
	e.redrawLine("", e.searchLine(), moves)
}

// nextSearch advances to the next older match of the same query. It never
// wraps; with no older match the state is untouched.
func (e *Editor) nextSearch() {
	row, col, ok := e.find(e.row+1, string(e.search.query))
	if !ok || (row == e.row && col == e.col) {
		return
	}

	moves := prefixRunes(e.rowText(row), col) - prefixRunes(e.rowText(e.row), e.col)
	e.row, e.col = row, col
	e.redrawLine("", e.searchLine(), moves)
}

// exitSearch leaves search mode, keeping the matched row as the edit row
// and the match offset as the cursor. With a nil accumulator it redraws the
// normal prompt line itself; otherwise the caller folds the cursor delta
// into its own redraw.
func (e *Editor) exitSearch(moves *int) {
	if e.search == nil {
		return
	}
	width := utf8.RuneCountInString(searchPrompt) + utf8.RuneCount(e.search.query)
	e.search = nil

	delta := utf8.RuneCountInString(e.ps1) - width
	if moves != nil {
		*moves += delta
		return
	}
	e.redrawLine(e.ps1, e.rowText(e.row), delta)
}
