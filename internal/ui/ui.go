package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/abdullathedruid/ccwb/internal/snapshot"
	"github.com/abdullathedruid/ccwb/internal/usage"
)

// Colors and styles for the TUI
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
)

// Meter renders a labeled fill bar, e.g. "api  [████░░░░] 500/1000".
// The bar turns yellow past warnFrac and red when full or over.
func Meter(label string, used, limit uint64, width int, warnFrac float64, stale bool) string {
	barWidth := width - runewidth.StringWidth(label) - 20
	if barWidth < 4 {
		barWidth = 4
	}

	var frac float64
	if limit > 0 {
		frac = float64(used) / float64(limit)
	}

	filled := int(frac * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	color := ColorGreen
	switch {
	case frac >= 1:
		color = ColorRed
	case frac >= warnFrac:
		color = ColorYellow
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	counts := fmt.Sprintf("%s/%s", formatCount(used), formatCount(limit))
	if limit == 0 {
		counts = formatCount(used)
	}

	line := fmt.Sprintf("%s [%s%s%s] %s", PadRight(label, 10), color, bar, ColorReset, counts)
	if stale {
		line += ColorDim + " (stale)" + ColorReset
	}
	return line
}

// UsagePanel renders one meter per provider sample.
func UsagePanel(samples []usage.Sample, width int, warnFrac float64) []string {
	if len(samples) == 0 {
		return []string{ColorDim + "no usage providers" + ColorReset}
	}
	lines := make([]string, 0, len(samples))
	for _, s := range samples {
		lines = append(lines, Meter(s.Provider, s.Used, s.Limit, width, warnFrac, !s.OK))
	}
	return lines
}

// ContextMeter renders the context-window fill bar.
func ContextMeter(tokens, limit uint64, width int, warnFrac float64) string {
	return Meter("context", tokens, limit, width, warnFrac, false)
}

// HistoryList renders the snapshot history, most recent first, marking the
// selected entry.
func HistoryList(entries []snapshot.Entry, selected, width, maxRows int) []string {
	if len(entries) == 0 {
		return []string{ColorDim + "no snapshots yet" + ColorReset}
	}

	lines := make([]string, 0, maxRows)
	// Newest on top; walk backwards from the end.
	for i := len(entries) - 1; i >= 0 && len(lines) < maxRows; i-- {
		e := entries[i]
		marker := "  "
		if i == selected {
			marker = "▸ "
		}
		kind := ""
		if e.Backup {
			kind = " backup"
		}
		line := fmt.Sprintf("%s#%d %s%s", marker, e.Seq, e.Timestamp.Local().Format(time.TimeOnly), kind)
		if i == selected {
			line = ColorBold + line + ColorReset
		}
		lines = append(lines, Truncate(line, width))
	}
	return lines
}

// StatusBar renders the keybinding hints for the current focus.
func StatusBar(historyFocused bool, notice string, width int) string {
	help := "tab:history  ^q:quit"
	if historyFocused {
		help = "tab:output  ↑↓:select  enter:jump  d:diff  r:restore  ^q:quit"
	}
	if notice != "" {
		return Truncate(ColorYellow+notice+ColorReset+"  "+ColorDim+help+ColorReset, width)
	}
	return Truncate(ColorDim+help+ColorReset, width)
}

// formatCount shortens large token counts, e.g. 200000 -> "200k".
func formatCount(n uint64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 10_000:
		return fmt.Sprintf("%dk", n/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Truncate shortens a string to fit in the given width.
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// PadRight pads a string to the right.
func PadRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return runewidth.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// Center centers a string in the given width.
func Center(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return runewidth.Truncate(s, width, "")
	}
	padding := (width - sw) / 2
	return strings.Repeat(" ", padding) + s + strings.Repeat(" ", width-sw-padding)
}
