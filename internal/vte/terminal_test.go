package vte

import (
	"fmt"
	"testing"

	"github.com/vito/midterm"
)

func feed(t *testing.T, term *Terminal, data string) {
	t.Helper()
	if _, err := term.Write([]byte(data)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

// TestCursorMovementMatchesReference checks CSI cursor movement against
// midterm as an independent reference interpreter.
func TestCursorMovementMatchesReference(t *testing.T) {
	tests := []string{
		"\x1b[H",
		"\x1b[5;10H",
		"\x1b[10;20H\x1b[3A",
		"\x1b[10;20H\x1b[5B\x1b[4C",
		"\x1b[10;20H\x1b[7D",
		"\x1b[999;999H",
		"\x1b[H\x1b[2B\x1b[15C",
		"\x1b[5;5H\x1b[50D",
		"\x1b[5;5H\x1b[A\x1b[A\x1b[A\x1b[A\x1b[A\x1b[A",
		"\x1b[3;7f",
		"\x1b[18;3H\x1b[10B\x1b[200C",
	}

	for _, seq := range tests {
		term := New(24, 80)
		ref := midterm.NewTerminal(24, 80)

		feed(t, term, seq)
		if _, err := ref.Write([]byte(seq)); err != nil {
			t.Fatalf("reference write failed: %v", err)
		}

		x, y := term.Cursor()
		if x != ref.Cursor.X || y != ref.Cursor.Y {
			t.Errorf("sequence %q: cursor (%d,%d), reference (%d,%d)",
				seq, x, y, ref.Cursor.X, ref.Cursor.Y)
		}
	}
}

// TestChunkBoundaryInvariance verifies that splitting input at arbitrary
// byte positions never changes the final grid.
func TestChunkBoundaryInvariance(t *testing.T) {
	input := []byte("plain \x1b[1;32mgreen\x1b[0m\r\n" +
		"\x1b]0;some title\x07wide: 日本\r\n" +
		"\x1b[3;10H\x1b[38;5;200mdot\x1b[m\x1b[2;1Hsecond\x1b[K")

	whole := New(10, 40)
	if _, err := whole.Write(input); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := whole.Snapshot()
	wantX, wantY := whole.Cursor()

	// Split into two chunks at every position.
	for i := 0; i <= len(input); i++ {
		split := New(10, 40)
		split.Write(input[:i])
		split.Write(input[i:])

		if !gridsEqual(want, split.Snapshot()) {
			t.Fatalf("split at %d: grid differs from unsplit feed", i)
		}
		x, y := split.Cursor()
		if x != wantX || y != wantY {
			t.Fatalf("split at %d: cursor (%d,%d), want (%d,%d)", i, x, y, wantX, wantY)
		}
	}

	// Byte-by-byte.
	single := New(10, 40)
	for _, b := range input {
		single.Write([]byte{b})
	}
	if !gridsEqual(want, single.Snapshot()) {
		t.Fatal("byte-by-byte feed: grid differs from unsplit feed")
	}
}

func gridsEqual(a, b [][]Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for y := range a {
		if len(a[y]) != len(b[y]) {
			return false
		}
		for x := range a[y] {
			if a[y][x] != b[y][x] {
				return false
			}
		}
	}
	return true
}

func TestPrintAndSGR(t *testing.T) {
	term := New(4, 20)
	feed(t, term, "\x1b[1;4;31mAB\x1b[0mC")

	grid := term.Snapshot()
	a := grid[0][0]
	if a.Rune != 'A' || a.FG != Color(1) || a.Attr&AttrBold == 0 || a.Attr&AttrUnderline == 0 {
		t.Errorf("cell A = %+v, want bold underline red 'A'", a)
	}
	c := grid[0][2]
	if c.Rune != 'C' || c.FG != DefaultFG || c.Attr != 0 {
		t.Errorf("cell C = %+v, want plain default-color 'C'", c)
	}
}

func TestExtendedColors(t *testing.T) {
	term := New(2, 10)
	feed(t, term, "\x1b[38;5;196mX\x1b[48;2;10;20;30mY")

	grid := term.Snapshot()
	if grid[0][0].FG != Color(196) {
		t.Errorf("256-color FG = %v, want 196", grid[0][0].FG)
	}
	r, g, b, ok := grid[0][1].BG.IsRGB()
	if !ok || r != 10 || g != 20 || b != 30 {
		t.Errorf("truecolor BG = %v, want rgb(10,20,30)", grid[0][1].BG)
	}
}

func TestEraseInDisplay(t *testing.T) {
	term := New(3, 10)
	feed(t, term, "aaaa\r\nbbbb\r\ncccc")
	feed(t, term, "\x1b[2J")

	grid := term.Snapshot()
	for y := range grid {
		for x := range grid[y] {
			if grid[y][x].Rune != ' ' {
				t.Fatalf("cell (%d,%d) = %q after ED 2, want blank", x, y, grid[y][x].Rune)
			}
		}
	}
	// ED must not move the cursor.
	x, y := term.Cursor()
	if x != 4 || y != 2 {
		t.Errorf("cursor after ED = (%d,%d), want (4,2)", x, y)
	}
}

func TestEraseInLine(t *testing.T) {
	term := New(2, 8)
	feed(t, term, "abcdef\x1b[1;3H\x1b[K")

	grid := term.Snapshot()
	if grid[0][0].Rune != 'a' || grid[0][1].Rune != 'b' {
		t.Error("EL 0 erased cells before the cursor")
	}
	for x := 2; x < 8; x++ {
		if grid[0][x].Rune != ' ' {
			t.Errorf("cell %d = %q after EL 0, want blank", x, grid[0][x].Rune)
		}
	}
}

func TestAlternateScreen(t *testing.T) {
	term := New(4, 20)
	feed(t, term, "primary")
	feed(t, term, "\x1b[?1049h")

	grid := term.Snapshot()
	if grid[0][0].Rune != ' ' {
		t.Error("alternate screen should start blank")
	}

	feed(t, term, "alt content")
	feed(t, term, "\x1b[?1049l")

	grid = term.Snapshot()
	if got := string([]rune{grid[0][0].Rune, grid[0][1].Rune, grid[0][2].Rune}); got != "pri" {
		t.Errorf("primary screen content lost across alt-screen toggle: %q", got)
	}
}

func TestOSCTitle(t *testing.T) {
	term := New(2, 20)
	feed(t, term, "\x1b]0;hello world\x07after")

	if term.Title() != "hello world" {
		t.Errorf("Title = %q, want 'hello world'", term.Title())
	}
	grid := term.Snapshot()
	if grid[0][0].Rune != 'a' {
		t.Error("printing after an OSC string landed in the wrong place")
	}

	// ST-terminated variant.
	term2 := New(2, 20)
	feed(t, term2, "\x1b]2;other\x1b\\X")
	if term2.Title() != "other" {
		t.Errorf("Title = %q, want 'other'", term2.Title())
	}
	if term2.Snapshot()[0][0].Rune != 'X' {
		t.Error("printing after ST-terminated OSC landed in the wrong place")
	}
}

func TestMalformedSequenceRecovery(t *testing.T) {
	tests := []string{
		"\x1b[1;;;!mok",
		"\x1bZok",
		"\x1b[38;9;1mok",
		"\x1b]no terminator here then a very long string to overflow nothing\x07ok",
		"\x1b[?9999hok",
	}
	for _, seq := range tests {
		term := New(2, 40)
		feed(t, term, seq)
		grid := term.Snapshot()
		row := ""
		for _, c := range grid[0] {
			row += string(c.Rune)
		}
		if !containsOK(row) {
			t.Errorf("sequence %q: parser did not recover, row = %q", seq, row)
		}
	}
}

// TestUnhandledSequencesSwallowFinal feeds sequences the emulator does not
// act on and checks their final byte never leaks into the grid. Charset
// designations like ESC ( B and CSI sequences with private markers or
// intermediates must be consumed whole.
func TestUnhandledSequencesSwallowFinal(t *testing.T) {
	tests := []struct {
		seq  string
		want string
	}{
		{"\x1b(Bok", "ok"},
		{"\x1b)0ok", "ok"},
		{"\x1b#8ok", "ok"},
		{"\x1b[>0cok", "ok"},
		{"\x1b[>cok", "ok"},
		{"\x1b[=1hok", "ok"},
		{"\x1b[4 qok", "ok"},
		{"\x1b[0;1\"pok", "ok"},
	}
	for _, tt := range tests {
		term := New(2, 20)
		feed(t, term, tt.seq)
		grid := term.Snapshot()
		got := ""
		for _, c := range grid[0][:len(tt.want)] {
			got += string(c.Rune)
		}
		if got != tt.want {
			t.Errorf("sequence %q: row starts %q, want %q", tt.seq, got, tt.want)
		}
	}
}

func containsOK(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == 'o' && s[i+1] == 'k' {
			return true
		}
	}
	return false
}

func TestWideCharacters(t *testing.T) {
	term := New(2, 10)
	feed(t, term, "日x")

	grid := term.Snapshot()
	if !grid[0][0].Wide || grid[0][0].Rune != '日' {
		t.Errorf("cell 0 = %+v, want wide 日", grid[0][0])
	}
	if !grid[0][1].Cont {
		t.Errorf("cell 1 = %+v, want continuation", grid[0][1])
	}
	if grid[0][2].Rune != 'x' {
		t.Errorf("cell 2 = %q, want 'x'", grid[0][2].Rune)
	}
}

func TestResizeClampsAndTruncates(t *testing.T) {
	term := New(10, 40)
	feed(t, term, "\x1b[8;30Hdeep")

	term.Resize(4, 10)
	x, y := term.Cursor()
	if x > 9 || y > 3 {
		t.Errorf("cursor (%d,%d) out of bounds after shrink", x, y)
	}

	grid := term.Snapshot()
	if len(grid) != 4 || len(grid[0]) != 10 {
		t.Fatalf("grid %dx%d after resize, want 4x10", len(grid), len(grid[0]))
	}

	// Growing keeps existing content.
	term2 := New(2, 5)
	feed(t, term2, "keep")
	term2.Resize(4, 10)
	g := term2.Snapshot()
	if g[0][0].Rune != 'k' || g[0][3].Rune != 'p' {
		t.Error("content lost on grow")
	}
}

func TestScrollRegion(t *testing.T) {
	term := New(5, 10)
	for i := 0; i < 5; i++ {
		feed(t, term, fmt.Sprintf("\x1b[%d;1Hline%d", i+1, i))
	}
	// Region rows 2-4 (1-based), cursor to region bottom, then LF scrolls
	// only the region.
	feed(t, term, "\x1b[2;4r\x1b[4;1H\n")

	grid := term.Snapshot()
	if first := rowString(grid[0])[:5]; first != "line0" {
		t.Errorf("row 0 = %q, want line0 untouched", first)
	}
	if last := rowString(grid[4])[:5]; last != "line4" {
		t.Errorf("row 4 = %q, want line4 untouched", last)
	}
	if second := rowString(grid[1])[:5]; second != "line2" {
		t.Errorf("row 1 = %q, want line2 after region scroll", second)
	}
}

func rowString(row []Cell) string {
	out := make([]rune, 0, len(row))
	for _, c := range row {
		if c.Cont {
			continue
		}
		out = append(out, c.Rune)
	}
	return string(out)
}

func TestCursorVisibilityToggle(t *testing.T) {
	term := New(2, 10)
	if !term.CursorVisible() {
		t.Fatal("cursor should start visible")
	}
	feed(t, term, "\x1b[?25l")
	if term.CursorVisible() {
		t.Error("cursor still visible after ?25l")
	}
	feed(t, term, "\x1b[?25h")
	if !term.CursorVisible() {
		t.Error("cursor not visible after ?25h")
	}
}

func TestColumnAndRowAddressing(t *testing.T) {
	tests := []struct {
		seq  string
		x, y int
	}{
		{"\x1b[5;5H\x1b[12G", 11, 4},
		{"\x1b[5;5H\x1b[3d", 4, 2},
		{"\x1b[5;5H\x1b[2E", 0, 6},
		{"\x1b[5;5H\x1b[2F", 0, 2},
		{"\x1b[5;5H\x1b[500G", 19, 4},
	}
	for _, tt := range tests {
		term := New(10, 20)
		feed(t, term, tt.seq)
		x, y := term.Cursor()
		if x != tt.x || y != tt.y {
			t.Errorf("sequence %q: cursor (%d,%d), want (%d,%d)", tt.seq, x, y, tt.x, tt.y)
		}
	}
}

func TestLineWrap(t *testing.T) {
	term := New(3, 5)
	feed(t, term, "abcdefg")

	grid := term.Snapshot()
	if got := rowString(grid[0]); got != "abcde" {
		t.Errorf("row 0 = %q, want abcde", got)
	}
	if grid[1][0].Rune != 'f' || grid[1][1].Rune != 'g' {
		t.Errorf("row 1 = %q, want fg...", rowString(grid[1]))
	}
}
