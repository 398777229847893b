package vte

import "github.com/mattn/go-runewidth"

// Cursor is a grid position. X is the column, Y the row, both zero-based.
type Cursor struct {
	X int
	Y int
}

// screen is a rows x cols cell grid with a cursor, a drawing pen and a
// scroll region. All coordinates are clamped into bounds by the mutators.
type screen struct {
	rows  int
	cols  int
	cells [][]Cell
	cur   Cursor
	saved Cursor
	pen   Cell
	top   int // scroll region, inclusive
	bot   int
}

func newScreen(rows, cols int) *screen {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	s := &screen{
		rows: rows,
		cols: cols,
		pen:  defaultPen(),
		bot:  rows - 1,
	}
	s.cells = makeGrid(rows, cols, s.pen)
	return s
}

func makeGrid(rows, cols int, pen Cell) [][]Cell {
	grid := make([][]Cell, rows)
	for y := range grid {
		grid[y] = makeRow(cols, pen)
	}
	return grid
}

func makeRow(cols int, pen Cell) []Cell {
	row := make([]Cell, cols)
	blank := blankCell(pen)
	for x := range row {
		row[x] = blank
	}
	return row
}

// clampX returns x clamped into column bounds.
func (s *screen) clampX(x int) int {
	if x < 0 {
		return 0
	}
	if x >= s.cols {
		return s.cols - 1
	}
	return x
}

// clampY returns y clamped into row bounds.
func (s *screen) clampY(y int) int {
	if y < 0 {
		return 0
	}
	if y >= s.rows {
		return s.rows - 1
	}
	return y
}

// writeRune places r at the cursor and advances it, wrapping at the right
// edge. Wide runes occupy two cells; a wide rune that does not fit on the
// current line wraps first.
func (s *screen) writeRune(r rune) {
	w := runewidth.RuneWidth(r)
	if w <= 0 {
		return // combining or zero-width, not representable cell-by-cell
	}
	if s.cur.X+w > s.cols {
		s.carriageReturn()
		s.lineFeed()
	}
	c := s.pen
	c.Rune = r
	c.Wide = w == 2
	c.Cont = false
	s.clearWideAt(s.cur.Y, s.cur.X)
	s.cells[s.cur.Y][s.cur.X] = c
	if w == 2 && s.cur.X+1 < s.cols {
		cont := s.pen
		cont.Rune = 0
		cont.Cont = true
		s.clearWideAt(s.cur.Y, s.cur.X+1)
		s.cells[s.cur.Y][s.cur.X+1] = cont
	}
	s.cur.X += w
	if s.cur.X > s.cols {
		s.cur.X = s.cols
	}
}

// clearWideAt repairs a wide pair when one of its halves is overwritten.
func (s *screen) clearWideAt(y, x int) {
	if x >= s.cols {
		return
	}
	c := s.cells[y][x]
	if c.Cont && x > 0 && s.cells[y][x-1].Wide {
		s.cells[y][x-1] = blankCell(s.pen)
	}
	if c.Wide && x+1 < s.cols && s.cells[y][x+1].Cont {
		s.cells[y][x+1] = blankCell(s.pen)
	}
}

func (s *screen) carriageReturn() {
	s.cur.X = 0
}

// lineFeed moves the cursor down one row, scrolling the region when the
// cursor sits on its bottom row.
func (s *screen) lineFeed() {
	if s.cur.Y == s.bot {
		s.scrollUp(1)
		return
	}
	s.cur.Y = s.clampY(s.cur.Y + 1)
}

func (s *screen) backspace() {
	if s.cur.X > 0 {
		s.cur.X--
	}
}

func (s *screen) tab() {
	next := (s.cur.X/8 + 1) * 8
	s.cur.X = s.clampX(next)
}

// scrollUp shifts rows of the scroll region up by n, filling the bottom
// with blank rows.
func (s *screen) scrollUp(n int) {
	if n < 1 {
		n = 1
	}
	if n > s.bot-s.top+1 {
		n = s.bot - s.top + 1
	}
	for y := s.top; y <= s.bot; y++ {
		if y+n <= s.bot {
			s.cells[y] = s.cells[y+n]
		} else {
			s.cells[y] = makeRow(s.cols, s.pen)
		}
	}
}

// scrollDown shifts rows of the scroll region down by n, filling the top
// with blank rows.
func (s *screen) scrollDown(n int) {
	if n < 1 {
		n = 1
	}
	if n > s.bot-s.top+1 {
		n = s.bot - s.top + 1
	}
	for y := s.bot; y >= s.top; y-- {
		if y-n >= s.top {
			s.cells[y] = s.cells[y-n]
		} else {
			s.cells[y] = makeRow(s.cols, s.pen)
		}
	}
}

// insertLines inserts n blank rows at the cursor, pushing rows below it down
// within the scroll region. No-op outside the region.
func (s *screen) insertLines(n int) {
	if s.cur.Y < s.top || s.cur.Y > s.bot {
		return
	}
	savedTop := s.top
	s.top = s.cur.Y
	s.scrollDown(n)
	s.top = savedTop
}

// deleteLines removes n rows at the cursor, pulling rows below it up within
// the scroll region.
func (s *screen) deleteLines(n int) {
	if s.cur.Y < s.top || s.cur.Y > s.bot {
		return
	}
	savedTop := s.top
	s.top = s.cur.Y
	s.scrollUp(n)
	s.top = savedTop
}

// insertChars inserts n blank cells at the cursor, shifting the rest of the
// line right.
func (s *screen) insertChars(n int) {
	if n < 1 {
		n = 1
	}
	row := s.cells[s.cur.Y]
	for x := s.cols - 1; x >= s.cur.X+n; x-- {
		row[x] = row[x-n]
	}
	blank := blankCell(s.pen)
	for x := s.cur.X; x < s.cur.X+n && x < s.cols; x++ {
		row[x] = blank
	}
}

// deleteChars removes n cells at the cursor, shifting the rest of the line
// left and blank-filling the tail.
func (s *screen) deleteChars(n int) {
	if n < 1 {
		n = 1
	}
	row := s.cells[s.cur.Y]
	for x := s.cur.X; x < s.cols; x++ {
		if x+n < s.cols {
			row[x] = row[x+n]
		} else {
			row[x] = blankCell(s.pen)
		}
	}
}

// eraseInLine implements EL: 0 = cursor to end, 1 = start to cursor,
// 2 = whole line.
func (s *screen) eraseInLine(mode int) {
	row := s.cells[s.cur.Y]
	blank := blankCell(s.pen)
	switch mode {
	case 0:
		for x := s.cur.X; x < s.cols; x++ {
			row[x] = blank
		}
	case 1:
		for x := 0; x <= s.cur.X && x < s.cols; x++ {
			row[x] = blank
		}
	case 2:
		for x := 0; x < s.cols; x++ {
			row[x] = blank
		}
	}
}

// eraseInDisplay implements ED: 0 = cursor to end of screen, 1 = start of
// screen to cursor, 2/3 = whole screen.
func (s *screen) eraseInDisplay(mode int) {
	switch mode {
	case 0:
		s.eraseInLine(0)
		for y := s.cur.Y + 1; y < s.rows; y++ {
			s.cells[y] = makeRow(s.cols, s.pen)
		}
	case 1:
		s.eraseInLine(1)
		for y := 0; y < s.cur.Y; y++ {
			s.cells[y] = makeRow(s.cols, s.pen)
		}
	case 2, 3:
		s.cells = makeGrid(s.rows, s.cols, s.pen)
	}
}

// setScrollRegion sets the scroll region to rows top..bot (zero-based,
// inclusive) and homes the cursor. Invalid regions reset to full screen.
func (s *screen) setScrollRegion(top, bot int) {
	if top < 0 || bot >= s.rows || top >= bot {
		top = 0
		bot = s.rows - 1
	}
	s.top = top
	s.bot = bot
	s.cur = Cursor{}
}

// resize reallocates the grid to the new dimensions. Content that fits is
// kept, content outside the new bounds is truncated; the cursor is clamped
// and the scroll region reset. No reflow.
func (s *screen) resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	grid := makeGrid(rows, cols, s.pen)
	for y := 0; y < rows && y < s.rows; y++ {
		copy(grid[y], s.cells[y])
	}
	s.cells = grid
	s.rows = rows
	s.cols = cols
	s.top = 0
	s.bot = rows - 1
	s.cur.X = s.clampX(s.cur.X)
	s.cur.Y = s.clampY(s.cur.Y)
	s.saved.X = s.clampX(s.saved.X)
	s.saved.Y = s.clampY(s.saved.Y)
}

// applySGR interprets an SGR parameter list against the pen.
func (s *screen) applySGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			s.pen = defaultPen()
		case p == 1:
			s.pen.Attr |= AttrBold
		case p == 2:
			s.pen.Attr |= AttrDim
		case p == 3:
			s.pen.Attr |= AttrItalic
		case p == 4:
			s.pen.Attr |= AttrUnderline
		case p == 5:
			s.pen.Attr |= AttrBlink
		case p == 7:
			s.pen.Attr |= AttrInverse
		case p == 21, p == 22:
			s.pen.Attr &^= AttrBold | AttrDim
		case p == 23:
			s.pen.Attr &^= AttrItalic
		case p == 24:
			s.pen.Attr &^= AttrUnderline
		case p == 25:
			s.pen.Attr &^= AttrBlink
		case p == 27:
			s.pen.Attr &^= AttrInverse
		case p >= 30 && p <= 37:
			s.pen.FG = Color(p - 30)
		case p == 38:
			if c, skip, ok := extendedColor(params[i+1:]); ok {
				s.pen.FG = c
				i += skip
			} else {
				return // malformed, drop the rest
			}
		case p == 39:
			s.pen.FG = DefaultFG
		case p >= 40 && p <= 47:
			s.pen.BG = Color(p - 40)
		case p == 48:
			if c, skip, ok := extendedColor(params[i+1:]); ok {
				s.pen.BG = c
				i += skip
			} else {
				return
			}
		case p == 49:
			s.pen.BG = DefaultBG
		case p >= 90 && p <= 97:
			s.pen.FG = Color(p - 90 + 8)
		case p >= 100 && p <= 107:
			s.pen.BG = Color(p - 100 + 8)
		}
	}
}

// extendedColor parses the tail of a 38/48 SGR parameter: 5;n for palette,
// 2;r;g;b for true color. Returns the parsed color and how many parameters
// were consumed.
func extendedColor(rest []int) (Color, int, bool) {
	if len(rest) >= 2 && rest[0] == 5 {
		n := rest[1]
		if n < 0 || n > 255 {
			return 0, 0, false
		}
		return Color(n), 2, true
	}
	if len(rest) >= 4 && rest[0] == 2 {
		r, g, b := rest[1], rest[2], rest[3]
		if r > 255 || g > 255 || b > 255 {
			return 0, 0, false
		}
		return RGB(uint8(r), uint8(g), uint8(b)), 4, true
	}
	return 0, 0, false
}
