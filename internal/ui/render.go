// Package ui provides rendering for the output pane and workbench panels.
package ui

import (
	"fmt"
	"strings"

	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/ccwb/internal/vte"
)

// RenderGrid re-encodes a terminal grid as SGR-styled text into a gocui
// view. Styles are emitted only on change to keep the frame small.
func RenderGrid(v *gocui.View, cells [][]vte.Cell) {
	var sb strings.Builder

	for y, row := range cells {
		lastFG, lastBG := vte.DefaultFG, vte.DefaultBG
		var lastAttr vte.Attr

		for _, cell := range row {
			if cell.Cont {
				// Continuation of a wide rune; the rune itself covers it.
				continue
			}
			if cell.FG != lastFG || cell.BG != lastBG || cell.Attr != lastAttr {
				sb.WriteString("\033[0m")
				writeStyle(&sb, cell)
				lastFG, lastBG, lastAttr = cell.FG, cell.BG, cell.Attr
			}
			if cell.Rune == 0 {
				sb.WriteRune(' ')
			} else {
				sb.WriteRune(cell.Rune)
			}
		}
		sb.WriteString("\033[0m")
		if y < len(cells)-1 {
			sb.WriteRune('\n')
		}
	}
	fmt.Fprint(v, sb.String())
}

func writeStyle(sb *strings.Builder, cell vte.Cell) {
	if cell.Attr&vte.AttrBold != 0 {
		sb.WriteString("\033[1m")
	}
	if cell.Attr&vte.AttrDim != 0 {
		sb.WriteString("\033[2m")
	}
	if cell.Attr&vte.AttrItalic != 0 {
		sb.WriteString("\033[3m")
	}
	if cell.Attr&vte.AttrUnderline != 0 {
		sb.WriteString("\033[4m")
	}
	if cell.Attr&vte.AttrBlink != 0 {
		sb.WriteString("\033[5m")
	}
	if cell.Attr&vte.AttrInverse != 0 {
		sb.WriteString("\033[7m")
	}
	writeColor(sb, cell.FG, false)
	writeColor(sb, cell.BG, true)
}

func writeColor(sb *strings.Builder, c vte.Color, background bool) {
	if c == vte.DefaultFG || c == vte.DefaultBG {
		return
	}
	base := 30
	if background {
		base = 40
	}
	if r, g, b, ok := c.IsRGB(); ok {
		fmt.Fprintf(sb, "\033[%d;2;%d;%d;%dm", base+8, r, g, b)
		return
	}
	switch {
	case c < 8:
		fmt.Fprintf(sb, "\033[%dm", base+int(c))
	case c < 16:
		fmt.Fprintf(sb, "\033[%dm", base+60+int(c-8))
	default:
		fmt.Fprintf(sb, "\033[%d;5;%dm", base+8, c)
	}
}
