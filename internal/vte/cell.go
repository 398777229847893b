// Package vte implements the embedded terminal emulator: a resumable
// escape-sequence parser feeding a cell grid sized to the output pane.
package vte

// Color is a terminal color. Values 0-255 are palette colors; RGB colors
// and the default foreground/background are flagged above the palette range.
type Color uint32

const (
	// DefaultFG is the terminal's default foreground color.
	DefaultFG Color = 1 << 24
	// DefaultBG is the terminal's default background color.
	DefaultBG Color = 1<<24 + 1

	rgbFlag Color = 1 << 25
)

// RGB returns a true-color value.
func RGB(r, g, b uint8) Color {
	return rgbFlag | Color(r)<<16 | Color(g)<<8 | Color(b)
}

// IsRGB reports whether c is a true-color value; if so r, g and b hold the
// channel values.
func (c Color) IsRGB() (r, g, b uint8, ok bool) {
	if c&rgbFlag == 0 {
		return 0, 0, 0, false
	}
	return uint8(c >> 16), uint8(c >> 8), uint8(c), true
}

// Attr is a bitmask of cell style attributes.
type Attr uint8

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrInverse
)

// Cell is one character cell of the grid.
type Cell struct {
	Rune rune
	FG   Color
	BG   Color
	Attr Attr
	// Wide marks the leading cell of a double-width character; the cell to
	// its right is a continuation and holds Rune == 0 with Cont set.
	Wide bool
	Cont bool
}

// blankCell returns an empty cell carrying the given pen's colors.
func blankCell(pen Cell) Cell {
	return Cell{Rune: ' ', FG: pen.FG, BG: pen.BG}
}

// defaultPen returns the initial drawing state.
func defaultPen() Cell {
	return Cell{Rune: ' ', FG: DefaultFG, BG: DefaultBG}
}
