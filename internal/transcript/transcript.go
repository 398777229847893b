// Package transcript accumulates the child's output stream and exposes the
// offsets and token estimates the rest of the workbench keys off.
package transcript

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// maxLines bounds the retained scrollback.
const maxLines = 5000

// tokenCharRatio is the fixed heuristic: roughly four characters per token.
const tokenCharRatio = 4

// Buffer holds the plain-text view of everything the child has emitted.
// Escape sequences are stripped before appending; the byte offset counts
// raw output so it can address positions in the original stream.
type Buffer struct {
	mu      sync.RWMutex
	strip   stripper
	lines   []string
	starts  []int64 // raw offset at which each retained line began
	offset  int64   // raw bytes observed, including escape sequences
	chars   int64   // printable characters retained (for token estimation)
	trimmed int     // lines dropped from the front of the scrollback
}

// New creates an empty transcript buffer.
func New() *Buffer {
	return &Buffer{lines: []string{""}, starts: []int64{0}}
}

// Append records a raw output chunk. Returns the transcript offset after
// the append, suitable for tagging a history entry.
func (b *Buffer) Append(raw []byte) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	cleaned := b.strip.clean(string(raw))
	b.offset += int64(len(raw))
	b.chars += int64(utf8.RuneCountInString(cleaned))

	parts := strings.Split(cleaned, "\n")
	b.lines[len(b.lines)-1] += parts[0]
	for _, part := range parts[1:] {
		// A line opened in this chunk receives its content from the next
		// offset onward; mid-chunk precision is not needed.
		b.lines = append(b.lines, part)
		b.starts = append(b.starts, b.offset)
	}
	if excess := len(b.lines) - maxLines; excess > 0 {
		b.lines = append([]string(nil), b.lines[excess:]...)
		b.starts = append([]int64(nil), b.starts[excess:]...)
		b.trimmed += excess
	}
	return b.offset
}

// Offset returns the raw byte offset of the end of the transcript.
func (b *Buffer) Offset() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.offset
}

// LineCount returns the number of retained transcript lines.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Lines returns a copy of the retained lines in [start, end).
func (b *Buffer) Lines(start, end int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if start < 0 {
		start = 0
	}
	if end > len(b.lines) {
		end = len(b.lines)
	}
	if start >= end {
		return nil
	}
	out := make([]string, end-start)
	copy(out, b.lines[start:end])
	return out
}

// LineFor returns the index of the retained line that was current when the
// given raw offset was written. Offsets before the retained window map to
// line 0; offsets past the end map to the last line.
func (b *Buffer) LineFor(offset int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	line := 0
	for i, start := range b.starts {
		if start > offset {
			break
		}
		line = i
	}
	return line
}

// EstimateTokens estimates tokens consumed by the transcript using the
// fixed characters-per-token ratio.
func (b *Buffer) EstimateTokens() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint64((b.chars + tokenCharRatio - 1) / tokenCharRatio)
}

// stripper removes escape sequences and carriage returns, keeping the
// printable text and newlines. Its state persists between calls so a
// sequence split across output chunks is still dropped whole.
type stripper struct {
	inEsc bool
	inCSI bool
	inOSC bool
}

func (st *stripper) clean(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for _, r := range s {
		switch {
		case st.inOSC:
			if r == 0x07 {
				st.inOSC = false
			} else if r == 0x1b {
				st.inEsc = true
				st.inOSC = false
			}
		case st.inCSI:
			if r >= 0x40 && r <= 0x7e {
				st.inCSI = false
			}
		case st.inEsc:
			switch r {
			case '[':
				st.inCSI = true
			case ']':
				st.inOSC = true
			}
			st.inEsc = false
		case r == 0x1b:
			st.inEsc = true
		case r == '\r':
			// Treat CR as a no-op for the plain-text view.
		case r == '\n' || r == '\t':
			out.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// Other control bytes carry no text.
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
