package vte

import (
	"sync"
	"unicode/utf8"
)

// Terminal is a thread-safe terminal emulator. Raw child output is written
// to it in arrival order; the UI reads grid snapshots and cursor state.
// It maintains a primary and an alternate screen, mirroring the buffers of
// full-screen terminal applications.
type Terminal struct {
	mu sync.Mutex

	main   *screen
	alt    *screen
	active *screen
	onAlt  bool

	parser        *parser
	partial       []byte // incomplete UTF-8 tail carried between writes
	cursorVisible bool
	title         string
}

// New creates a terminal emulator with the given dimensions.
func New(rows, cols int) *Terminal {
	t := &Terminal{
		main:          newScreen(rows, cols),
		alt:           newScreen(rows, cols),
		parser:        newParser(),
		cursorVisible: true,
	}
	t.active = t.main
	return t
}

// Write feeds raw output bytes through the parser. Sequences and multi-byte
// characters may be split across calls at any point. Implements io.Writer.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := p
	if len(t.partial) > 0 {
		data = append(t.partial, p...)
		t.partial = nil
	}

	for len(data) > 0 {
		b := data[0]
		if b < utf8.RuneSelf {
			t.parser.advance(b, t)
			data = data[1:]
			continue
		}
		if !utf8.FullRune(data) {
			// Keep the tail for the next write.
			t.partial = append(t.partial, data...)
			break
		}
		r, size := utf8.DecodeRune(data)
		if r != utf8.RuneError {
			t.parser.advanceRune(r, t)
		}
		data = data[size:]
	}
	return len(p), nil
}

// Resize changes the grid dimensions of both screens, clamping cursors and
// truncating content outside the new bounds.
func (t *Terminal) Resize(rows, cols int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.main.resize(rows, cols)
	t.alt.resize(rows, cols)
}

// Size returns the current grid dimensions.
func (t *Terminal) Size() (rows, cols int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active.rows, t.active.cols
}

// Cursor returns the cursor position, clamped into grid bounds.
func (t *Terminal) Cursor() (x, y int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.active
	return s.clampX(s.cur.X), s.clampY(s.cur.Y)
}

// CursorVisible reports whether the cursor should be drawn. Interactive
// assistants hide it while streaming.
func (t *Terminal) CursorVisible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursorVisible
}

// Title returns the last OSC window title, if the child set one.
func (t *Terminal) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// Snapshot returns a copy of the active grid for rendering.
func (t *Terminal) Snapshot() [][]Cell {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.active
	grid := make([][]Cell, s.rows)
	for y := range grid {
		grid[y] = make([]Cell, s.cols)
		copy(grid[y], s.cells[y])
	}
	return grid
}

// performer implementation. The parser calls these with the lock held by
// Write.

func (t *Terminal) print(r rune) {
	t.active.writeRune(r)
}

func (t *Terminal) execute(b byte) {
	s := t.active
	switch b {
	case '\n', 0x0b, 0x0c:
		s.lineFeed()
	case '\r':
		s.carriageReturn()
	case '\b':
		s.backspace()
	case '\t':
		s.tab()
	case 0x07:
		// BEL: nothing to ring.
	}
}

func (t *Terminal) escDispatch(b byte) {
	s := t.active
	switch b {
	case 'D': // IND
		s.lineFeed()
	case 'E': // NEL
		s.carriageReturn()
		s.lineFeed()
	case 'M': // RI
		if s.cur.Y == s.top {
			s.scrollDown(1)
		} else {
			s.cur.Y = s.clampY(s.cur.Y - 1)
		}
	case '7':
		s.saved = s.cur
	case '8':
		s.cur = Cursor{X: s.clampX(s.saved.X), Y: s.clampY(s.saved.Y)}
	case 'c': // RIS
		t.main = newScreen(s.rows, s.cols)
		t.alt = newScreen(s.rows, s.cols)
		t.active = t.main
		t.onAlt = false
		t.cursorVisible = true
	}
}

func (t *Terminal) csiDispatch(private bool, params []int, final byte) {
	if private {
		t.privateDispatch(params, final)
		return
	}
	s := t.active
	switch final {
	case 'A':
		s.cur.Y = s.clampY(s.cur.Y - param(params, 0, 1))
	case 'B', 'e':
		s.cur.Y = s.clampY(s.cur.Y + param(params, 0, 1))
	case 'C', 'a':
		s.cur.X = s.clampX(s.cur.X + param(params, 0, 1))
	case 'D':
		s.cur.X = s.clampX(s.cur.X - param(params, 0, 1))
	case 'E':
		s.cur.X = 0
		s.cur.Y = s.clampY(s.cur.Y + param(params, 0, 1))
	case 'F':
		s.cur.X = 0
		s.cur.Y = s.clampY(s.cur.Y - param(params, 0, 1))
	case 'G', '`':
		s.cur.X = s.clampX(param(params, 0, 1) - 1)
	case 'd':
		s.cur.Y = s.clampY(param(params, 0, 1) - 1)
	case 'H', 'f':
		s.cur.Y = s.clampY(param(params, 0, 1) - 1)
		s.cur.X = s.clampX(param(params, 1, 1) - 1)
	case 'J':
		s.eraseInDisplay(param(params, 0, 0))
	case 'K':
		s.eraseInLine(param(params, 0, 0))
	case 'L':
		s.insertLines(param(params, 0, 1))
	case 'M':
		s.deleteLines(param(params, 0, 1))
	case 'P':
		s.deleteChars(param(params, 0, 1))
	case '@':
		s.insertChars(param(params, 0, 1))
	case 'S':
		s.scrollUp(param(params, 0, 1))
	case 'T':
		s.scrollDown(param(params, 0, 1))
	case 'r':
		s.setScrollRegion(param(params, 0, 1)-1, param(params, 1, s.rows)-1)
	case 'm':
		s.applySGR(params)
	case 's':
		s.saved = s.cur
	case 'u':
		s.cur = Cursor{X: s.clampX(s.saved.X), Y: s.clampY(s.saved.Y)}
	}
	// Anything else is valid but unsupported; dropping it keeps state sane.
}

func (t *Terminal) privateDispatch(params []int, final byte) {
	mode := param(params, 0, 0)
	switch final {
	case 'h':
		switch mode {
		case 25:
			t.cursorVisible = true
		case 47, 1047:
			t.enterAlt(false)
		case 1049:
			t.enterAlt(true)
		}
	case 'l':
		switch mode {
		case 25:
			t.cursorVisible = false
		case 47, 1047:
			t.leaveAlt(false)
		case 1049:
			t.leaveAlt(true)
		}
	}
}

// enterAlt switches to the alternate screen, preserving the primary grid
// underneath. Mode 1049 also saves the cursor and clears the alt screen.
func (t *Terminal) enterAlt(saveCursor bool) {
	if t.onAlt {
		return
	}
	if saveCursor {
		t.main.saved = t.main.cur
	}
	t.alt = newScreen(t.main.rows, t.main.cols)
	t.active = t.alt
	t.onAlt = true
}

func (t *Terminal) leaveAlt(restoreCursor bool) {
	if !t.onAlt {
		return
	}
	t.active = t.main
	t.onAlt = false
	if restoreCursor {
		s := t.main
		s.cur = Cursor{X: s.clampX(s.saved.X), Y: s.clampY(s.saved.Y)}
	}
}

func (t *Terminal) oscDispatch(data []byte) {
	// Only title-setting (0/2) is understood; everything else is consumed
	// so it cannot corrupt parser state.
	s := string(data)
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			code := s[:i]
			if code == "0" || code == "2" {
				t.title = s[i+1:]
			}
			return
		}
	}
}

// param returns params[i], substituting def when the parameter is absent or
// zero (terminal convention for count-like parameters).
func param(params []int, i, def int) int {
	if i >= len(params) || params[i] == 0 {
		return def
	}
	return params[i]
}
