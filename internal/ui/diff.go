package ui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/abdullathedruid/ccwb/internal/restore"
)

// HighlightDiff colorizes unified diff text for the preview modal. On any
// highlighting failure the plain text is returned unchanged.
func HighlightDiff(diff string) string {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, diff, "diff", "terminal256", "monokai"); err != nil {
		return diff
	}
	return buf.String()
}

// DiffModal renders the body of the diff preview modal.
func DiffModal(p *restore.Preview, width int) []string {
	header := fmt.Sprintf("restore preview: snapshot #%d (%d files)", p.Entry.Seq, len(p.Files))
	lines := []string{ColorBold + Truncate(header, width) + ColorReset, ""}

	if p.Empty() {
		lines = append(lines, ColorDim+"workspace matches this snapshot"+ColorReset)
		return lines
	}

	for _, f := range p.Files {
		lines = append(lines, ColorBold+Truncate(fmt.Sprintf("%c %s", f.Status, f.Path), width)+ColorReset)
		for _, l := range strings.Split(strings.TrimRight(HighlightDiff(f.Diff), "\n"), "\n") {
			lines = append(lines, Truncate(l, width))
		}
		lines = append(lines, "")
	}
	lines = append(lines, ColorDim+"r:restore  esc:close"+ColorReset)
	return lines
}

// ConfirmModal renders the restore confirmation prompt.
func ConfirmModal(p *restore.Preview, width int) []string {
	return []string{
		ColorBold + Center(fmt.Sprintf("Restore snapshot #%d?", p.Entry.Seq), width) + ColorReset,
		Center(fmt.Sprintf("%d files will be changed; the current state is backed up first.", len(p.Files)), width),
		"",
		Center(ColorYellow+"y"+ColorReset+": restore   "+ColorYellow+"n"+ColorReset+"/esc: cancel", width),
	}
}
